package probe

import (
	"testing"

	"reclip/media"
)

func TestPickFrameRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		avg     media.TimeBase
		nominal media.TimeBase
		want    float64
	}{
		{"average preferred", media.TimeBase{24000, 1001}, media.TimeBase{30, 1}, 24000.0 / 1001},
		{"nominal when average unset", media.TimeBase{0, 1}, media.TimeBase{25, 1}, 25},
		{"fallback when both unset", media.TimeBase{0, 1}, media.TimeBase{0, 0}, FallbackFrameRate},
		{"fallback when rates negative", media.TimeBase{-30, 1}, media.TimeBase{0, 1}, FallbackFrameRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := pickFrameRate(tt.avg, tt.nominal)
			if got != tt.want {
				t.Errorf("pickFrameRate: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFrameIntervalMillis(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fps  float64
		want int64
	}{
		{"30fps", 30, 33},
		{"24fps", 24, 41},
		{"very high rate floors at 1ms", 2000, 1},
		{"unset rate uses fallback", 0, 33},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info := Info{FrameRate: tt.fps}
			if got := info.FrameIntervalMillis(); got != tt.want {
				t.Errorf("FrameIntervalMillis(%v fps): got %d, want %d", tt.fps, got, tt.want)
			}
		})
	}
}

func TestScaledDimensions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		w, h    int
		divisor int
		wantW   int
		wantH   int
	}{
		{"full", 1920, 1080, 1, 1920, 1080},
		{"half", 1920, 1080, 2, 960, 540},
		{"quarter", 1920, 1080, 4, 480, 270},
		{"odd dimensions truncate", 1919, 1079, 2, 959, 539},
		{"divisor floor", 1280, 720, 0, 1280, 720},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info := Info{Width: tt.w, Height: tt.h}
			w, h := info.ScaledDimensions(tt.divisor)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("ScaledDimensions(%d): got %dx%d, want %dx%d", tt.divisor, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}
