// Package ico writes Windows icon (.ico) files from a set of square images.
//
// Images smaller than 32x32 are stored as uncompressed 24-bit bitmaps with
// an empty AND mask; larger ones are stored as embedded PNG, which Windows
// accepts from Vista onwards.
package ico

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"sort"
)

// MaxSize is the largest edge length an icon entry can have.
const MaxSize = 256

var (
	ErrNoImages  = errors.New("ico: no images")
	ErrImageSize = errors.New("ico: image too large")
)

const (
	dirSize      = 6
	entrySize    = 16
	bmpInfoSize  = 40
	bmpThreshold = 32
)

type iconDir struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

type iconDirEntry struct {
	Width      uint8
	Height     uint8
	ColorCount uint8
	Reserved   uint8
	Planes     uint16
	BitCount   uint16
	BytesInRes uint32
	Offset     uint32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

// Encode writes imgs as one icon file. Entries are ordered by ascending
// width.
func Encode(w io.Writer, imgs []image.Image) error {
	if len(imgs) == 0 {
		return ErrNoImages
	}
	sorted := append([]image.Image(nil), imgs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Bounds().Dx() < sorted[j].Bounds().Dx()
	})

	entries := make([]iconDirEntry, 0, len(sorted))
	var data bytes.Buffer
	offset := uint32(dirSize + entrySize*len(sorted))

	for _, img := range sorted {
		b := img.Bounds()
		if b.Dx() > MaxSize || b.Dy() > MaxSize || b.Dx() <= 0 || b.Dy() <= 0 {
			return fmt.Errorf("%w: %dx%d", ErrImageSize, b.Dx(), b.Dy())
		}
		start := data.Len()
		entry := iconDirEntry{
			Width:  dimByte(b.Dx()),
			Height: dimByte(b.Dy()),
			Planes: 1,
		}
		if b.Dx()*b.Dy() < bmpThreshold*bmpThreshold {
			entry.BitCount = 24
			if err := writeBitmap(&data, img); err != nil {
				return err
			}
		} else {
			entry.BitCount = 32
			if err := png.Encode(&data, img); err != nil {
				return fmt.Errorf("ico: encode png: %w", err)
			}
		}
		entry.BytesInRes = uint32(data.Len() - start)
		entry.Offset = offset + uint32(start)
		entries = append(entries, entry)
	}

	if err := binary.Write(w, binary.LittleEndian, iconDir{Type: 1, Count: uint16(len(entries))}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, entries); err != nil {
		return err
	}
	_, err := data.WriteTo(w)
	return err
}

// dimByte encodes an edge length; 256 is stored as 0.
func dimByte(n int) uint8 {
	if n >= MaxSize {
		return 0
	}
	return uint8(n)
}

// writeBitmap writes img as a bottom-up BGR bitmap followed by an all-zero
// (fully opaque) AND mask. The header height covers both masks.
func writeBitmap(w *bytes.Buffer, img image.Image) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	hdr := bitmapInfoHeader{
		Size:     bmpInfoSize,
		Width:    int32(width),
		Height:   int32(2 * height),
		Planes:   1,
		BitCount: 24,
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}

	row := make([]byte, align4(width*3))
	for y := b.Max.Y - 1; y >= b.Min.Y; y-- {
		clear(row)
		for x := 0; x < width; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, y).RGBA()
			row[x*3] = uint8(bl >> 8)
			row[x*3+1] = uint8(g >> 8)
			row[x*3+2] = uint8(r >> 8)
		}
		w.Write(row)
	}

	mask := make([]byte, align4((width+7)/8)*height)
	w.Write(mask)
	return nil
}

func align4(n int) int { return (n + 3) &^ 3 }

// WriteFile decodes the PNG files at paths and writes them as one icon at
// dst.
func WriteFile(dst string, paths []string) error {
	imgs := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := decodePNG(p)
		if err != nil {
			return err
		}
		imgs = append(imgs, img)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("ico: %w", err)
	}
	if err := Encode(f, imgs); err != nil {
		f.Close()
		os.Remove(dst)
		return err
	}
	return f.Close()
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ico: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("ico: decode %s: %w", path, err)
	}
	return img, nil
}
