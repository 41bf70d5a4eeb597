// Package scale converts decoded video frames to tightly packed BGRA
// via libswscale, so no Go code ever touches planar Y/U/V data.
package scale

import (
	"fmt"

	"github.com/asticode/go-astiav"
)

// BGRA is a reusable frame-to-BGRA converter. The underlying scale
// context is rebuilt lazily whenever the source geometry or pixel
// format changes. Not safe for concurrent use; each decode goroutine
// owns its own converter.
type BGRA struct {
	ssc    *astiav.SoftwareScaleContext
	dst    *astiav.Frame
	srcW   int
	srcH   int
	srcPix astiav.PixelFormat
}

// Close releases the scale context and destination frame. Safe to call
// multiple times.
func (s *BGRA) Close() {
	if s.dst != nil {
		s.dst.Free()
		s.dst = nil
	}
	if s.ssc != nil {
		s.ssc.Free()
		s.ssc = nil
	}
}

func (s *BGRA) ensure(src *astiav.Frame) error {
	sw, sh := src.Width(), src.Height()
	sp := src.PixelFormat()
	if s.ssc != nil && sw == s.srcW && sh == s.srcH && sp == s.srcPix {
		return nil
	}
	s.Close()

	ssc, err := astiav.CreateSoftwareScaleContext(
		sw, sh, sp,
		sw, sh, astiav.PixelFormatBgra,
		astiav.NewSoftwareScaleContextFlags(),
	)
	if err != nil {
		return fmt.Errorf("create scale context (%dx%d %s -> BGRA): %w", sw, sh, sp, err)
	}

	dst := astiav.AllocFrame()
	dst.SetWidth(sw)
	dst.SetHeight(sh)
	dst.SetPixelFormat(astiav.PixelFormatBgra)
	if err := dst.AllocBuffer(1); err != nil {
		dst.Free()
		ssc.Free()
		return fmt.Errorf("alloc BGRA buffer: %w", err)
	}

	s.ssc = ssc
	s.dst = dst
	s.srcW, s.srcH, s.srcPix = sw, sh, sp
	return nil
}

// Convert scales src into a freshly allocated contiguous BGRA slice and
// returns its dimensions. The slice is independent of libav memory and
// may outlive the source frame.
func (s *BGRA) Convert(src *astiav.Frame) (width, height int, data []byte, err error) {
	if err := s.ensure(src); err != nil {
		return 0, 0, nil, err
	}
	if err := s.ssc.ScaleFrame(src, s.dst); err != nil {
		return 0, 0, nil, fmt.Errorf("scale frame: %w", err)
	}
	n, err := s.dst.ImageBufferSize(1)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("image buffer size: %w", err)
	}
	out := make([]byte, n)
	if _, err := s.dst.ImageCopyToBuffer(out, 1); err != nil {
		return 0, 0, nil, fmt.Errorf("copy image to buffer: %w", err)
	}
	return s.srcW, s.srcH, out, nil
}
