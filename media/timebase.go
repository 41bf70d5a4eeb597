// Package media defines the shared timestamp model and frame value types
// that flow between the stream prober, the transcode pipeline, and the
// playback engine.
package media

import (
	"math"
	"math/bits"
)

// TimeBase is the rational unit in which a stream's integer timestamps
// are expressed. A timestamp is meaningless without its TimeBase, and
// two timestamps are only comparable within the same TimeBase.
type TimeBase struct {
	Num int
	Den int
}

// NewTimeBase creates a time base, substituting 1 for a zero denominator.
func NewTimeBase(num, den int) TimeBase {
	if den == 0 {
		den = 1
	}
	return TimeBase{Num: num, Den: den}
}

// Float64 returns the floating point value of the rational.
func (tb TimeBase) Float64() float64 {
	if tb.Den == 0 {
		return 0
	}
	return float64(tb.Num) / float64(tb.Den)
}

// Invert returns the inverted rational (den/num).
func (tb TimeBase) Invert() TimeBase {
	return TimeBase{Num: tb.Den, Den: tb.Num}
}

// Valid reports whether the time base can carry timestamps.
func (tb TimeBase) Valid() bool {
	return tb.Num > 0 && tb.Den > 0
}

// Common time bases.
var (
	// MillisBase is the 1/1000 base used for all UI-facing positions.
	MillisBase = TimeBase{Num: 1, Den: 1000}

	// MicrosBase is the container-level 1/1000000 clock that demuxers
	// report whole-file durations in.
	MicrosBase = TimeBase{Num: 1, Den: 1000000}
)

// Rescale converts value from one time base to another using exact
// rational arithmetic, truncating toward zero:
//
//	value * to.Den * from.Num / (from.Den * to.Num)
//
// The intermediate product is kept in 128 bits so large timestamps in
// fine-grained bases do not overflow. Both bases must be Valid; a base
// with a zero or negative component yields 0 rather than wrapping.
// Every frame-to-second and second-to-frame conversion in the transcode
// and playback paths routes through here; converting via floating-point
// seconds at more than one stage is how double-rounding bugs creep in.
func Rescale(value int64, from, to TimeBase) int64 {
	if !from.Valid() || !to.Valid() {
		return 0
	}
	num := uint64(from.Num) * uint64(to.Den)
	den := uint64(from.Den) * uint64(to.Num)

	neg := value < 0
	v := uint64(value)
	if neg {
		v = uint64(-value)
	}

	hi, lo := bits.Mul64(v, num)
	if hi >= den {
		// Quotient would not fit in 64 bits; saturate.
		if neg {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	q, _ := bits.Div64(hi, lo, den)
	if q > math.MaxInt64 {
		if neg {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	if neg {
		return -int64(q)
	}
	return int64(q)
}
