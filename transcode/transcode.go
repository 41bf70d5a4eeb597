// Package transcode turns a source video into a smaller derivative that
// fits a file-size budget, optionally restricted to a sub-range of the
// timeline and a reduced resolution. It owns the range-bounded
// decode -> scale -> encode -> mux state machine; codec primitives come
// from libav via go-astiav.
package transcode

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/asticode/go-astiav"

	"reclip/media"
	"reclip/probe"
)

// Request is the immutable input of a transcode run.
type Request struct {
	Input        string
	Output       string
	TargetSizeMB float64
	ScaleDivisor int // 1, 2, or 4
	StartSeconds float64
	EndSeconds   float64
}

// Validate rejects impossible requests before any codec resource is
// opened.
func (r Request) Validate() error {
	switch r.ScaleDivisor {
	case 1, 2, 4:
	default:
		return fmt.Errorf("%w: %d", ErrInvalidDivisor, r.ScaleDivisor)
	}
	if r.StartSeconds < 0 || r.EndSeconds <= r.StartSeconds {
		return fmt.Errorf("%w: start=%.3f end=%.3f", ErrInvalidRange, r.StartSeconds, r.EndSeconds)
	}
	return nil
}

// outputDimensions divides the source geometry by the scale divisor
// with integer truncation. Odd source dimensions lose a pixel; this is
// accepted, not corrected.
func (r Request) outputDimensions(srcW, srcH int) (w, h int) {
	return srcW / r.ScaleDivisor, srcH / r.ScaleDivisor
}

// startMillis and endMillis bound the segment on the millisecond clock
// that all gating comparisons use.
func (r Request) startMillis() int64 { return int64(r.StartSeconds * 1000) }
func (r Request) endMillis() int64   { return int64(r.EndSeconds * 1000) }

// Transcode runs a request to completion or failure. It is synchronous
// and has no cancellation; it must not run concurrently with a playback
// session against the same source handle. Every opened resource is
// released exactly once on every exit path.
func Transcode(req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	bitrate, err := media.ComputeBitrate(req.TargetSizeMB, req.EndSeconds-req.StartSeconds)
	if err != nil {
		return err
	}

	s := &session{
		log: slog.With("component", "transcode",
			"input", req.Input,
			"output", req.Output),
		req:     req,
		bitrate: bitrate,
	}
	defer s.close()

	if err := s.open(); err != nil {
		return err
	}
	if err := s.run(); err != nil {
		return err
	}
	return s.finish()
}

// session holds every libav handle of one run so that close can release
// them all exactly once regardless of which step failed.
type session struct {
	log     *slog.Logger
	req     Request
	bitrate int64

	inCtx  *astiav.FormatContext
	outCtx *astiav.FormatContext
	ioCtx  *astiav.IOContext
	decCtx *astiav.CodecContext
	encCtx *astiav.CodecContext
	swsCtx *astiav.SoftwareScaleContext

	inVideo  *astiav.Stream
	inAudio  *astiav.Stream
	outVideo *astiav.Stream
	outAudio *astiav.Stream

	videoStartPTS int64 // start offset in the video stream's time base
	audioStartPTS int64 // start offset in the audio stream's time base
}

// close releases all acquired handles. Each field is nilled after its
// release so a second call is a no-op.
func (s *session) close() {
	if s.swsCtx != nil {
		s.swsCtx.Free()
		s.swsCtx = nil
	}
	if s.decCtx != nil {
		s.decCtx.Free()
		s.decCtx = nil
	}
	if s.encCtx != nil {
		s.encCtx.Free()
		s.encCtx = nil
	}
	if s.inCtx != nil {
		s.inCtx.CloseInput()
		s.inCtx.Free()
		s.inCtx = nil
	}
	if s.ioCtx != nil {
		_ = s.ioCtx.Close()
		s.ioCtx.Free()
		s.ioCtx = nil
	}
	if s.outCtx != nil {
		s.outCtx.Free()
		s.outCtx = nil
	}
}

// open acquires input, decoder, encoder, output container, and the
// scaler, writes the header, and seeks to the requested start.
func (s *session) open() error {
	s.inCtx = astiav.AllocFormatContext()
	if s.inCtx == nil {
		return fmt.Errorf("%w: alloc format context", ErrOpenFailed)
	}
	if err := s.inCtx.OpenInput(s.req.Input, nil, nil); err != nil {
		// CloseInput on an unopened context is invalid; drop it here.
		s.inCtx.Free()
		s.inCtx = nil
		return fmt.Errorf("%w: %s: %v", ErrOpenFailed, s.req.Input, err)
	}
	if err := s.inCtx.FindStreamInfo(nil); err != nil {
		return fmt.Errorf("%w: stream info: %v", ErrOpenFailed, err)
	}

	s.inVideo = probe.FirstStream(s.inCtx, astiav.MediaTypeVideo)
	if s.inVideo == nil {
		return fmt.Errorf("%w: %s", ErrNoVideoStream, s.req.Input)
	}
	s.inAudio = probe.FirstStream(s.inCtx, astiav.MediaTypeAudio)

	dec := astiav.FindDecoder(s.inVideo.CodecParameters().CodecID())
	if dec == nil {
		return fmt.Errorf("%w: no decoder for %s", ErrOpenFailed, s.inVideo.CodecParameters().CodecID())
	}
	s.decCtx = astiav.AllocCodecContext(dec)
	if s.decCtx == nil {
		return fmt.Errorf("%w: alloc decoder context", ErrOpenFailed)
	}
	if err := s.inVideo.CodecParameters().ToCodecContext(s.decCtx); err != nil {
		return fmt.Errorf("%w: decoder parameters: %v", ErrOpenFailed, err)
	}
	if err := s.decCtx.Open(dec, nil); err != nil {
		return fmt.Errorf("%w: open decoder: %v", ErrOpenFailed, err)
	}

	var err error
	s.outCtx, err = astiav.AllocOutputFormatContext(nil, "", s.req.Output)
	if err != nil || s.outCtx == nil {
		return fmt.Errorf("%w: alloc output context: %v", ErrMuxOpenFailed, err)
	}

	enc, err := selectEncoder(s.log)
	if err != nil {
		return err
	}
	s.outVideo = s.outCtx.NewStream(enc)
	if s.outVideo == nil {
		return fmt.Errorf("%w: new video stream", ErrMuxOpenFailed)
	}
	s.encCtx = astiav.AllocCodecContext(enc)
	if s.encCtx == nil {
		return fmt.Errorf("%w: alloc encoder context", ErrEncodeOpenFailed)
	}
	if err := s.configureEncoder(enc); err != nil {
		return err
	}
	if err := s.encCtx.ToCodecParameters(s.outVideo.CodecParameters()); err != nil {
		return fmt.Errorf("%w: encoder parameters: %v", ErrEncodeOpenFailed, err)
	}
	s.outVideo.SetTimeBase(s.encCtx.TimeBase())

	s.log.Info("encoder configured",
		"width", s.encCtx.Width(),
		"height", s.encCtx.Height(),
		"bitrate", s.bitrate,
		"pixelFormat", s.encCtx.PixelFormat().String())

	// Audio output is best effort: a failure here disables audio rather
	// than aborting the run.
	if s.inAudio != nil {
		if out := s.outCtx.NewStream(nil); out != nil {
			if err := s.inAudio.CodecParameters().Copy(out.CodecParameters()); err == nil {
				out.SetTimeBase(s.inAudio.TimeBase())
				s.outAudio = out
			} else {
				s.log.Warn("audio parameters copy failed, disabling audio", "error", err)
				s.inAudio = nil
			}
		} else {
			s.log.Warn("audio output stream creation failed, disabling audio")
			s.inAudio = nil
		}
	}

	s.ioCtx, err = astiav.OpenIOContext(s.req.Output, astiav.NewIOContextFlags(astiav.IOContextFlagWrite), nil, nil)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrMuxOpenFailed, s.req.Output, err)
	}
	s.outCtx.SetPb(s.ioCtx)

	if err := s.outCtx.WriteHeader(nil); err != nil {
		return fmt.Errorf("%w: write header: %v", ErrMuxOpenFailed, err)
	}

	s.seekToStart()
	return nil
}

// seekToStart positions the demuxer at or before the requested start
// (backward-biased, so decoding always reaches the first in-range
// frame) and records the per-stream start offsets used for rebasing.
func (s *session) seekToStart() {
	startMs := s.req.startMillis()
	s.videoStartPTS = media.Rescale(startMs, media.MillisBase, timeBase(s.inVideo))
	if s.inAudio != nil {
		s.audioStartPTS = media.Rescale(startMs, media.MillisBase, timeBase(s.inAudio))
	}

	if err := s.inCtx.SeekFrame(s.inVideo.Index(), s.videoStartPTS, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		s.log.Warn("seek to start failed, decoding from stream head", "startSeconds", s.req.StartSeconds, "error", err)
	}
	s.decCtx.FlushBuffers()
}

// run drives the demux/decode/encode loop until the range is exhausted
// or the stream ends.
func (s *session) run() error {
	var err error
	s.swsCtx, err = astiav.CreateSoftwareScaleContext(
		s.decCtx.Width(), s.decCtx.Height(), s.decCtx.PixelFormat(),
		s.encCtx.Width(), s.encCtx.Height(), s.encCtx.PixelFormat(),
		astiav.NewSoftwareScaleContextFlags(),
	)
	if err != nil {
		return fmt.Errorf("%w: create scaler: %v", ErrEncodeOpenFailed, err)
	}

	pkt := astiav.AllocPacket()
	defer pkt.Free()
	frame := astiav.AllocFrame()
	defer frame.Free()
	encPkt := astiav.AllocPacket()
	defer encPkt.Free()

	scaled := astiav.AllocFrame()
	defer scaled.Free()
	scaled.SetWidth(s.encCtx.Width())
	scaled.SetHeight(s.encCtx.Height())
	scaled.SetPixelFormat(s.encCtx.PixelFormat())
	if err := scaled.AllocBuffer(32); err != nil {
		return fmt.Errorf("%w: alloc scaled frame: %v", ErrEncodeOpenFailed, err)
	}

	for {
		if err := s.inCtx.ReadFrame(pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				return nil
			}
			return fmt.Errorf("%w: read frame: %v", ErrWriteFailed, err)
		}

		switch pkt.StreamIndex() {
		case s.inVideo.Index():
			done, err := s.encodeVideoPacket(pkt, frame, scaled, encPkt)
			pkt.Unref()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		default:
			if s.outAudio != nil && s.inAudio != nil && pkt.StreamIndex() == s.inAudio.Index() {
				err := s.passAudioPacket(pkt)
				pkt.Unref()
				if err != nil {
					return err
				}
			} else {
				pkt.Unref()
			}
		}
	}
}

// encodeVideoPacket decodes one demuxed video packet, gates the decoded
// frames against the requested range, and feeds in-range frames through
// the scaler and encoder. It reports done=true once a frame past the
// range end is seen or the decoder gives up; the caller then proceeds
// to flush.
func (s *session) encodeVideoPacket(pkt *astiav.Packet, frame, scaled *astiav.Frame, encPkt *astiav.Packet) (bool, error) {
	if err := s.decCtx.SendPacket(pkt); err != nil && !errors.Is(err, astiav.ErrEagain) {
		s.log.Warn("decoder rejected packet, stopping early", "error", err)
		return true, nil
	}

	vtb := timeBase(s.inVideo)
	etb := rationalTB(s.encCtx.TimeBase())

	for {
		if err := s.decCtx.ReceiveFrame(frame); err != nil {
			if errors.Is(err, astiav.ErrEagain) || errors.Is(err, astiav.ErrEof) {
				return false, nil
			}
			s.log.Warn("decode error, stopping early", "error", err)
			return true, nil
		}

		pts := frame.Pts()
		if pts == astiav.NoPtsValue {
			pts = frame.PktDts()
		}
		ptsMs := media.Rescale(pts, vtb, media.MillisBase)
		if ptsMs > s.req.endMillis() {
			frame.Unref()
			return true, nil
		}
		if ptsMs < s.req.startMillis() {
			frame.Unref()
			continue
		}

		// Rebase so the first in-range frame lands at (or near) zero.
		// The backward-biased seek can deliver frames slightly before
		// start; the gate above drops those, and the clamp guards the
		// boundary frame itself.
		rel := pts - s.videoStartPTS
		if rel < 0 {
			rel = 0
		}

		if err := s.swsCtx.ScaleFrame(frame, scaled); err != nil {
			frame.Unref()
			return false, fmt.Errorf("%w: scale frame: %v", ErrWriteFailed, err)
		}
		frame.Unref()
		scaled.SetPts(media.Rescale(rel, vtb, etb))

		if err := s.encCtx.SendFrame(scaled); err != nil {
			s.log.Warn("encoder rejected frame, stopping early", "error", err)
			return true, nil
		}
		if err := s.drainEncoder(encPkt); err != nil {
			return false, err
		}
	}
}

// drainEncoder writes every packet the encoder has ready, rescaled into
// the output stream's time base and in encode order.
func (s *session) drainEncoder(encPkt *astiav.Packet) error {
	for {
		if err := s.encCtx.ReceivePacket(encPkt); err != nil {
			return nil
		}
		encPkt.SetStreamIndex(s.outVideo.Index())
		encPkt.RescaleTs(s.encCtx.TimeBase(), s.outVideo.TimeBase())
		err := s.outCtx.WriteInterleavedFrame(encPkt)
		encPkt.Unref()
		if err != nil {
			return fmt.Errorf("%w: video packet: %v", ErrWriteFailed, err)
		}
	}
}

// passAudioPacket carries one compressed audio packet into the output
// unmodified except for its clock: a missing timestamp is backfilled
// from its sibling field, out-of-range packets are dropped, and
// survivors are rebased to the segment start and rescaled into the
// output stream's time base.
func (s *session) passAudioPacket(pkt *astiav.Packet) error {
	pts, dts := pkt.Pts(), pkt.Dts()
	if pts == astiav.NoPtsValue {
		pts = dts
	}
	if dts == astiav.NoPtsValue {
		dts = pts
	}
	if pts == astiav.NoPtsValue {
		// No clock at all; the packet cannot be placed.
		return nil
	}

	atb := timeBase(s.inAudio)
	ptsMs := media.Rescale(pts, atb, media.MillisBase)
	if ptsMs < s.req.startMillis() || ptsMs > s.req.endMillis() {
		return nil
	}

	relPts := pts - s.audioStartPTS
	if relPts < 0 {
		relPts = 0
	}
	relDts := dts - s.audioStartPTS
	if relDts < 0 {
		relDts = 0
	}
	pkt.SetPts(relPts)
	pkt.SetDts(relDts)
	pkt.SetStreamIndex(s.outAudio.Index())
	pkt.RescaleTs(s.inAudio.TimeBase(), s.outAudio.TimeBase())

	if err := s.outCtx.WriteInterleavedFrame(pkt); err != nil {
		return fmt.Errorf("%w: audio packet: %v", ErrWriteFailed, err)
	}
	return nil
}

// finish signals end-of-stream to the encoder, drains its buffered
// packets, and finalizes the container.
func (s *session) finish() error {
	if err := s.encCtx.SendFrame(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
		s.log.Warn("encoder flush signal failed", "error", err)
	}
	encPkt := astiav.AllocPacket()
	defer encPkt.Free()
	if err := s.drainEncoder(encPkt); err != nil {
		return err
	}
	if err := s.outCtx.WriteTrailer(); err != nil {
		return fmt.Errorf("%w: trailer: %v", ErrWriteFailed, err)
	}
	s.log.Info("segment written",
		"startSeconds", s.req.StartSeconds,
		"endSeconds", s.req.EndSeconds,
		"targetMB", s.req.TargetSizeMB,
		"bitrate", s.bitrate)
	return nil
}

func rationalTB(r astiav.Rational) media.TimeBase {
	return media.NewTimeBase(r.Num(), r.Den())
}

func timeBase(st *astiav.Stream) media.TimeBase {
	r := st.TimeBase()
	return media.NewTimeBase(r.Num(), r.Den())
}
