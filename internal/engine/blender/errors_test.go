package blender

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"python traceback", "Traceback (most recent call last):\n  File \"<string>\", line 2\nKeyError: 'x'", CausePython},
		{"missing scene", "KeyError: 'bpy_collection[key]: key \"Main\" not found'", CausePython},
		{"missing blend", "Error: Cannot read file '/work/icons.blend': No such file or directory", CauseMissingFile},
		{"cuda", "CUDA error: Out of memory in cuMemAlloc", CauseGPU},
		{"optix", "OptiX error: OPTIX_ERROR_UNKNOWN", CauseGPU},
		{"write", "Error: Cannot write image file '/ro/Main_16px.png'", CauseWriteFailed},
		{"unknown", "Fra:1 Mem:12M | Rendering 1 / 64 samples", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.output); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTail(t *testing.T) {
	got := tail("a\nb\r\nc\nd\n\n", 2)
	if len(got) != 2 || got[0] != "c" || got[1] != "d" {
		t.Errorf("tail = %q", got)
	}
	if tail("   \n", 3) != nil {
		t.Error("blank input should give no lines")
	}
}
