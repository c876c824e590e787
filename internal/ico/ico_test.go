package ico

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func square(n int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func readEntries(t *testing.T, data []byte) (iconDir, []iconDirEntry) {
	t.Helper()
	r := bytes.NewReader(data)
	var dir iconDir
	if err := binary.Read(r, binary.LittleEndian, &dir); err != nil {
		t.Fatal(err)
	}
	entries := make([]iconDirEntry, dir.Count)
	if err := binary.Read(r, binary.LittleEndian, entries); err != nil {
		t.Fatal(err)
	}
	return dir, entries
}

func TestEncode_Layout(t *testing.T) {
	red := color.NRGBA{R: 0xff, A: 0xff}
	var buf bytes.Buffer
	imgs := []image.Image{square(256, red), square(16, red), square(48, red), square(32, red)}
	if err := Encode(&buf, imgs); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	data := buf.Bytes()
	dir, entries := readEntries(t, data)

	if dir.Type != 1 || dir.Count != 4 {
		t.Fatalf("dir = %+v", dir)
	}
	wantWidths := []uint8{16, 32, 48, 0}
	for i, e := range entries {
		if e.Width != wantWidths[i] || e.Height != wantWidths[i] {
			t.Errorf("entry %d size = %dx%d, want %d", i, e.Width, e.Height, wantWidths[i])
		}
		if int(e.Offset)+int(e.BytesInRes) > len(data) {
			t.Errorf("entry %d overruns file", i)
		}
	}

	// 16px: 40-byte header + 16 rows of 48 bytes + 16 rows of 4-byte mask.
	if entries[0].BitCount != 24 || entries[0].BytesInRes != 40+16*48+16*4 {
		t.Errorf("bitmap entry = %+v", entries[0])
	}
	// first pixel of the bitmap is blue-green-red
	px := data[entries[0].Offset+40 : entries[0].Offset+43]
	if !bytes.Equal(px, []byte{0, 0, 0xff}) {
		t.Errorf("first pixel = % x, want 00 00 ff", px)
	}

	last := entries[3]
	img, err := png.Decode(bytes.NewReader(data[last.Offset : last.Offset+last.BytesInRes]))
	if err != nil {
		t.Fatalf("256px entry is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 256 {
		t.Errorf("256px entry width = %d", img.Bounds().Dx())
	}
}

func TestEncode_Errors(t *testing.T) {
	if err := Encode(&bytes.Buffer{}, nil); !errors.Is(err, ErrNoImages) {
		t.Errorf("empty error = %v", err)
	}
	big := image.NewNRGBA(image.Rect(0, 0, 512, 512))
	if err := Encode(&bytes.Buffer{}, []image.Image{big}); !errors.Is(err, ErrImageSize) {
		t.Errorf("oversize error = %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, n := range []int{16, 32} {
		p := filepath.Join(dir, "img"+string(rune('a'+n%26))+".png")
		f, err := os.Create(p)
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, square(n, color.NRGBA{G: 0x80, A: 0xff})); err != nil {
			t.Fatal(err)
		}
		f.Close()
		paths = append(paths, p)
	}

	dst := filepath.Join(dir, "Main.ico")
	if err := WriteFile(dst, paths); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if d, _ := readEntries(t, data); d.Count != 2 {
		t.Errorf("count = %d", d.Count)
	}

	if err := WriteFile(filepath.Join(dir, "bad.ico"), []string{filepath.Join(dir, "missing.png")}); err == nil {
		t.Error("expected error for missing input")
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.ico")); !os.IsNotExist(err) {
		t.Error("failed write should not leave an output file")
	}
}
