package outpath

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWithSuffix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		src    string
		suffix string
		want   string
	}{
		{"simple", filepath.Join("a", "clip.mp4"), "small", filepath.Join("a", "clip_small.mp4")},
		{"no extension", filepath.Join("a", "clip"), "small", filepath.Join("a", "clip_small")},
		{"dotted name", filepath.Join("a", "clip.v2.mp4"), "5mb", filepath.Join("a", "clip.v2_5mb.mp4")},
		{"bare file", "clip.mkv", "out", "clip_out.mkv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := WithSuffix(tt.src, tt.suffix); got != tt.want {
				t.Errorf("WithSuffix(%q, %q) = %q, want %q", tt.src, tt.suffix, got, tt.want)
			}
		})
	}
}

func TestUniquify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.mp4")

	if got := Uniquify(path); got != path {
		t.Fatalf("free path changed: got %q", got)
	}

	touch := func(p string) {
		t.Helper()
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	touch(path)
	if got, want := Uniquify(path), filepath.Join(dir, "out-1.mp4"); got != want {
		t.Errorf("first collision: got %q, want %q", got, want)
	}

	touch(filepath.Join(dir, "out-1.mp4"))
	touch(filepath.Join(dir, "out-2.mp4"))
	if got, want := Uniquify(path), filepath.Join(dir, "out-3.mp4"); got != want {
		t.Errorf("third collision: got %q, want %q", got, want)
	}
}
