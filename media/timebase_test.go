package media

import (
	"math"
	"testing"
)

func TestRescaleExact(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value int64
		from  TimeBase
		to    TimeBase
		want  int64
	}{
		{"identity", 1234, TimeBase{1, 90000}, TimeBase{1, 90000}, 1234},
		{"90k to millis", 90000, TimeBase{1, 90000}, MillisBase, 1000},
		{"millis to 90k", 1000, MillisBase, TimeBase{1, 90000}, 90000},
		{"micros to millis truncates", 1999, MicrosBase, MillisBase, 1},
		{"ntsc frame to millis", 1, TimeBase{1001, 30000}, MillisBase, 33},
		{"zero", 0, TimeBase{1, 48000}, MillisBase, 0},
		{"negative truncates toward zero", -1999, MicrosBase, MillisBase, -1},
		{"large pts no overflow", 1 << 40, TimeBase{1, 90000}, MicrosBase, 12216795864177},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Rescale(tt.value, tt.from, tt.to)
			if got != tt.want {
				t.Errorf("Rescale(%d, %v, %v): got %d, want %d", tt.value, tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestRescaleRoundTripWithinOneUnit(t *testing.T) {
	t.Parallel()

	bases := []TimeBase{
		{1, 90000},
		{1, 1000},
		{1, 48000},
		{1001, 30000},
		{1, 1000000},
	}
	values := []int64{0, 1, 7, 999, 12345, 1 << 20, 1 << 33}

	for _, from := range bases {
		for _, to := range bases {
			for _, v := range values {
				back := Rescale(Rescale(v, from, to), to, from)
				diff := v - back
				if diff < 0 {
					diff = -diff
				}
				// Truncation may lose up to one destination unit, which
				// maps back to at most ceil(from/to) source units.
				limit := Rescale(1, to, from) + 1
				if diff > limit {
					t.Errorf("round trip %d via %v->%v: got %d back (diff %d > %d)", v, from, to, back, diff, limit)
				}
			}
		}
	}
}

func TestRescaleSaturates(t *testing.T) {
	t.Parallel()

	got := Rescale(math.MaxInt64, TimeBase{1, 1}, TimeBase{1, 1000})
	if got != math.MaxInt64 {
		t.Errorf("overflowing rescale: got %d, want MaxInt64", got)
	}
	got = Rescale(math.MinInt64, TimeBase{1, 1}, TimeBase{1, 1000})
	if got != math.MinInt64 {
		t.Errorf("overflowing negative rescale: got %d, want MinInt64", got)
	}
}

// A time base with a zero or negative component carries no timestamps;
// Rescale must return 0 instead of wrapping the component through an
// unsigned conversion.
func TestRescaleRejectsInvalidBases(t *testing.T) {
	t.Parallel()

	invalid := []TimeBase{
		{-1, 90000},
		{1, -90000},
		{0, 1000},
		{1, 0},
	}
	for _, tb := range invalid {
		if got := Rescale(90000, tb, MillisBase); got != 0 {
			t.Errorf("Rescale from %v: got %d, want 0", tb, got)
		}
		if got := Rescale(90000, MillisBase, tb); got != 0 {
			t.Errorf("Rescale to %v: got %d, want 0", tb, got)
		}
	}
}

func TestComputeBitrate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		sizeMB   float64
		duration float64
		want     int64
		wantErr  bool
	}{
		{"five MB over ten seconds", 5, 10, 3984588, false},
		{"one MB over one second", 1, 1, 7969177, false},
		{"zero duration", 5, 0, 0, true},
		{"negative duration", 5, -3, 0, true},
		{"zero size", 0, 10, 0, true},
		{"vanishing rate", 1e-9, 3600, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ComputeBitrate(tt.sizeMB, tt.duration)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got rate %d", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("bitrate: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTimeBaseHelpers(t *testing.T) {
	t.Parallel()

	if tb := NewTimeBase(1, 0); tb.Den != 1 {
		t.Errorf("zero denominator should normalize to 1, got %d", tb.Den)
	}
	if got := (TimeBase{1001, 30000}).Invert(); got != (TimeBase{30000, 1001}) {
		t.Errorf("Invert: got %v", got)
	}
	if !MillisBase.Valid() {
		t.Error("MillisBase should be valid")
	}
	if (TimeBase{0, 1000}).Valid() {
		t.Error("zero numerator should not be valid")
	}
	if got := (TimeBase{1, 2}).Float64(); got != 0.5 {
		t.Errorf("Float64: got %v, want 0.5", got)
	}
}
