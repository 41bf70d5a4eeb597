package transcode

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/asticode/go-astiav"
)

// hardwareEncoderName is the NVENC H.264 implementation looked up by
// name before falling back to the software encoder of the same codec.
const hardwareEncoderName = "h264_nvenc"

// selectEncoder prefers the hardware encoder and silently falls back to
// software H.264 when it is absent. The fallback is a recovery policy,
// not an error; the caller only learns which path was taken from logs.
func selectEncoder(log *slog.Logger) (*astiav.Codec, error) {
	if c := astiav.FindEncoderByName(hardwareEncoderName); c != nil {
		log.Info("using hardware encoder", "encoder", c.Name())
		return c, nil
	}
	log.Info("hardware encoder unavailable, falling back to software", "wanted", hardwareEncoderName)
	if c := astiav.FindEncoder(astiav.CodecIDH264); c != nil {
		return c, nil
	}
	return nil, ErrNoEncoder
}

// encoderPixelFormat returns the pixel format the selected encoder
// consumes: NV12 for NVENC, planar YUV 4:2:0 for the software path.
func encoderPixelFormat(enc *astiav.Codec) astiav.PixelFormat {
	if enc.Name() == hardwareEncoderName {
		return astiav.PixelFormatNv12
	}
	return astiav.PixelFormatYuv420P
}

// configureEncoder fills the encoder context with the scaled output
// geometry, a time base derived from the source frame rate, and the
// constant-bitrate budget (bitrate, maxrate, and bufsize all pinned to
// the same value), then opens it.
func (s *session) configureEncoder(enc *astiav.Codec) error {
	w, h := s.req.outputDimensions(s.decCtx.Width(), s.decCtx.Height())
	s.encCtx.SetWidth(w)
	s.encCtx.SetHeight(h)
	s.encCtx.SetSampleAspectRatio(s.decCtx.SampleAspectRatio())
	s.encCtx.SetPixelFormat(encoderPixelFormat(enc))
	s.encCtx.SetTimeBase(frameTimeBase(s.decCtx, s.inVideo))
	s.encCtx.SetBitRate(s.bitrate)

	if s.outCtx.OutputFormat().Flags().Has(astiav.IOFormatFlagGlobalheader) {
		s.encCtx.SetFlags(s.encCtx.Flags().Add(astiav.CodecContextFlagGlobalHeader))
	}

	opts := astiav.NewDictionary()
	defer opts.Free()
	rate := strconv.FormatInt(s.bitrate, 10)
	_ = opts.Set("maxrate", rate, 0)
	_ = opts.Set("bufsize", rate, 0)
	if enc.Name() != hardwareEncoderName {
		_ = opts.Set("preset", "medium", 0)
		_ = opts.Set("nal-hrd", "cbr", 0)
	}

	if err := s.encCtx.Open(enc, opts); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodeOpenFailed, enc.Name(), err)
	}
	return nil
}

// frameTimeBase derives the encoder time base as the inverse of the
// source frame rate, preferring the decoder's detected rate, then the
// stream's long-term average, then the 30fps fallback.
func frameTimeBase(decCtx *astiav.CodecContext, vs *astiav.Stream) astiav.Rational {
	r := decCtx.Framerate()
	if r.Num() <= 0 || r.Den() <= 0 {
		r = vs.AvgFrameRate()
	}
	if r.Num() <= 0 || r.Den() <= 0 {
		return astiav.NewRational(1, 30)
	}
	return astiav.NewRational(r.Den(), r.Num())
}
