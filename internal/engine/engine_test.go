package engine

import (
	"errors"
	"testing"
)

func TestExtension(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"PNG", ".png"},
		{"JPEG", ".jpg"},
		{"OPEN_EXR_MULTILAYER", ".exr"},
		{"png", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Extension(tt.format); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestRenderError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := error(&RenderError{Scene: "Main", Cause: "gpu error", Err: cause})
	if !errors.Is(err, ErrRender) || !errors.Is(err, cause) {
		t.Errorf("errors.Is failed for %v", err)
	}
	want := `engine: render "Main" failed (gpu error): exit status 1`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestStillRequest(t *testing.T) {
	r := StillRequest("Alt")
	if r.Animation || !r.WriteStill || r.UseViewport || r.Layer != "" || r.Scene != "Alt" {
		t.Errorf("StillRequest = %+v", r)
	}
}
