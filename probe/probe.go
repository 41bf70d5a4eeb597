// Package probe opens a media container just long enough to report the
// video geometry, duration, and frame rate that both the transcode
// pipeline and the playback engine size themselves from.
package probe

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"reclip/media"
)

// FallbackFrameRate is assumed when a stream declares neither a usable
// long-term average rate nor a nominal rate. It must stay positive:
// playback stepping derives its frame interval from this value.
const FallbackFrameRate = 30.0

var (
	// ErrOpenFailed means the container could not be opened or read.
	ErrOpenFailed = errors.New("open input failed")
	// ErrStreamInfoFailed means the container opened but its streams
	// could not be parsed.
	ErrStreamInfoFailed = errors.New("find stream info failed")
	// ErrNoVideoStream means the container holds no video stream.
	ErrNoVideoStream = errors.New("no video stream")
)

// Info describes the first video stream of a container.
type Info struct {
	Width     int
	Height    int
	Duration  float64 // seconds, 0 when the container does not declare one
	FrameRate float64 // frames per second, always > 0
}

// DurationMillis returns the clip duration in milliseconds.
func (i Info) DurationMillis() int64 {
	return int64(i.Duration * 1000)
}

// FrameIntervalMillis returns the display duration of one frame in
// milliseconds, floored at 1 so pacing sleeps and step offsets never
// degenerate to zero.
func (i Info) FrameIntervalMillis() int64 {
	if i.FrameRate <= 0 {
		return 1000 / int64(FallbackFrameRate)
	}
	ms := int64(1000 / i.FrameRate)
	if ms < 1 {
		ms = 1
	}
	return ms
}

// ScaledDimensions returns the source dimensions divided by divisor
// using integer division. Odd source dimensions truncate; the caller
// accepts the off-by-one rather than padding.
func (i Info) ScaledDimensions(divisor int) (w, h int) {
	if divisor < 1 {
		divisor = 1
	}
	return i.Width / divisor, i.Height / divisor
}

// Probe opens path, locates the first video stream, and reports its
// geometry, the container duration, and the stream frame rate.
func Probe(path string) (Info, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return Info{}, fmt.Errorf("%w: alloc format context", ErrOpenFailed)
	}
	defer fc.Free()

	if err := fc.OpenInput(path, nil, nil); err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, err)
	}
	defer fc.CloseInput()

	if err := fc.FindStreamInfo(nil); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrStreamInfoFailed, err)
	}

	vs := FirstStream(fc, astiav.MediaTypeVideo)
	if vs == nil {
		return Info{}, fmt.Errorf("%w: %s", ErrNoVideoStream, path)
	}

	var duration float64
	if d := fc.Duration(); d != astiav.NoPtsValue && d > 0 {
		duration = float64(media.Rescale(d, media.MicrosBase, media.MillisBase)) / 1000
	}

	return Info{
		Width:     vs.CodecParameters().Width(),
		Height:    vs.CodecParameters().Height(),
		Duration:  duration,
		FrameRate: pickFrameRate(rational(vs.AvgFrameRate()), rational(vs.RFrameRate())),
	}, nil
}

// FirstStream returns the first stream of the given media type, or nil.
func FirstStream(fc *astiav.FormatContext, mt astiav.MediaType) *astiav.Stream {
	for _, s := range fc.Streams() {
		if s.CodecParameters().MediaType() == mt {
			return s
		}
	}
	return nil
}

// pickFrameRate chooses the stream's long-term average rate when
// usable, else its declared nominal rate, else FallbackFrameRate.
func pickFrameRate(avg, nominal media.TimeBase) float64 {
	if avg.Valid() {
		return avg.Float64()
	}
	if nominal.Valid() {
		return nominal.Float64()
	}
	return FallbackFrameRate
}

func rational(r astiav.Rational) media.TimeBase {
	return media.TimeBase{Num: r.Num(), Den: r.Den()}
}
