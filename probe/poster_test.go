package probe

import (
	"testing"

	"github.com/asticode/go-astiav"
)

func TestMidpointSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration int64 // container 1/1000000 clock
		want     float64
	}{
		{"ten second clip", 10_000_000, 5},
		{"odd duration halves exactly", 1_000_001, 0.5000005},
		{"undeclared duration decodes from head", astiav.NoPtsValue, 0},
		{"zero duration", 0, 0},
		{"negative duration", -3_000_000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := midpointSeconds(tt.duration); got != tt.want {
				t.Errorf("midpointSeconds(%d): got %v, want %v", tt.duration, got, tt.want)
			}
		})
	}
}
