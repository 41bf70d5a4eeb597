package playback

import (
	"errors"
	"fmt"
	"time"

	"github.com/asticode/go-astiav"

	"reclip/internal/scale"
	"reclip/media"
	"reclip/probe"
)

// idleInterval is how often the paused decode goroutine checks for
// pending work.
const idleInterval = 10 * time.Millisecond

// run is the decode goroutine. All libav handles live on this goroutine
// and are released before it exits; callers interact only through the
// shared state. A terminal decode error stops the loop and is exposed
// via Err.
func (s *Session) run() {
	defer close(s.doneCh)

	d, err := openDecoder(s.path)
	if err != nil {
		s.fail(err)
		return
	}
	defer d.close()

	frameInterval := time.Duration(s.info.FrameIntervalMillis()) * time.Millisecond

	var picker *stepPicker
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		if req := s.st.takePending(); req != nil {
			// A backward step needs frames from before the target,
			// but decode only runs forward from a keyframe, so start
			// the scan two frame intervals earlier.
			seekMillis := req.targetMillis
			if req.step == StepBackward {
				seekMillis -= 2 * s.info.FrameIntervalMillis()
				if seekMillis < 0 {
					seekMillis = 0
				}
			}
			if err := d.seek(seekMillis); err != nil {
				s.log.Warn("seek failed, decoding from current position",
					"targetMillis", req.targetMillis, "error", err)
			}
			if req.exact {
				picker = &stepPicker{direction: req.step, targetMillis: req.targetMillis}
			} else {
				picker = nil
				s.st.setPosition(req.targetMillis)
			}
		}

		if picker != nil {
			pic, err := d.nextPicture()
			if err != nil {
				if errors.Is(err, astiav.ErrEof) {
					if last, ok := picker.finish(); ok {
						s.st.publish(last)
					}
					picker = nil
					continue
				}
				s.fail(err)
				return
			}
			if chosen, done := picker.offer(pic); done {
				s.st.publish(chosen)
				picker = nil
			}
			continue
		}

		if s.st.isPlaying() {
			pic, err := d.nextPicture()
			if err != nil {
				if errors.Is(err, astiav.ErrEof) {
					s.st.setPlaying(false)
					continue
				}
				s.fail(err)
				return
			}
			s.st.publish(pic)
			if !s.sleep(frameInterval) {
				return
			}
			continue
		}

		if !s.sleep(idleInterval) {
			return
		}
	}
}

// sleep waits for d, returning false if the session was stopped.
func (s *Session) sleep(d time.Duration) bool {
	select {
	case <-s.stopCh:
		return false
	case <-time.After(d):
		return true
	}
}

func (s *Session) fail(err error) {
	s.setErr(err)
	s.log.Error("decode loop terminated", "error", err)
}

// decoder bundles the demuxer and video decoder handles owned by the
// decode goroutine.
type decoder struct {
	fc      *astiav.FormatContext
	vs      *astiav.Stream
	decCtx  *astiav.CodecContext
	pkt     *astiav.Packet
	frame   *astiav.Frame
	conv    scale.BGRA
	tb      media.TimeBase
	drained bool
}

func openDecoder(path string) (*decoder, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, fmt.Errorf("%w: alloc format context", probe.ErrOpenFailed)
	}
	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, fmt.Errorf("%w: %s: %v", probe.ErrOpenFailed, path, err)
	}
	d := &decoder{fc: fc}

	if err := fc.FindStreamInfo(nil); err != nil {
		d.close()
		return nil, fmt.Errorf("%w: %v", probe.ErrStreamInfoFailed, err)
	}
	d.vs = probe.FirstStream(fc, astiav.MediaTypeVideo)
	if d.vs == nil {
		d.close()
		return nil, fmt.Errorf("%w: %s", probe.ErrNoVideoStream, path)
	}
	d.tb = media.TimeBase{Num: d.vs.TimeBase().Num(), Den: d.vs.TimeBase().Den()}

	dec := astiav.FindDecoder(d.vs.CodecParameters().CodecID())
	if dec == nil {
		d.close()
		return nil, fmt.Errorf("%w: no decoder for %s", probe.ErrOpenFailed, d.vs.CodecParameters().CodecID())
	}
	d.decCtx = astiav.AllocCodecContext(dec)
	if d.decCtx == nil {
		d.close()
		return nil, fmt.Errorf("%w: alloc decoder context", probe.ErrOpenFailed)
	}
	if err := d.vs.CodecParameters().ToCodecContext(d.decCtx); err != nil {
		d.close()
		return nil, fmt.Errorf("%w: decoder parameters: %v", probe.ErrOpenFailed, err)
	}
	if err := d.decCtx.Open(dec, nil); err != nil {
		d.close()
		return nil, fmt.Errorf("%w: open decoder: %v", probe.ErrOpenFailed, err)
	}

	d.pkt = astiav.AllocPacket()
	d.frame = astiav.AllocFrame()
	return d, nil
}

func (d *decoder) close() {
	d.conv.Close()
	if d.frame != nil {
		d.frame.Free()
		d.frame = nil
	}
	if d.pkt != nil {
		d.pkt.Free()
		d.pkt = nil
	}
	if d.decCtx != nil {
		d.decCtx.Free()
		d.decCtx = nil
	}
	if d.fc != nil {
		d.fc.CloseInput()
		d.fc.Free()
		d.fc = nil
	}
}

// seek positions the demuxer at the keyframe at or before ms and resets
// decoder state so stale buffered frames never surface after a jump.
func (d *decoder) seek(ms int64) error {
	ts := media.Rescale(ms, media.MillisBase, d.tb)
	if err := d.fc.SeekFrame(d.vs.Index(), ts, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err != nil {
		return err
	}
	d.decCtx.FlushBuffers()
	d.drained = false
	return nil
}

// nextPicture decodes the next video frame and converts it to BGRA. At
// end of stream it flushes the decoder once and then returns
// astiav.ErrEof.
func (d *decoder) nextPicture() (*media.Picture, error) {
	for {
		err := d.decCtx.ReceiveFrame(d.frame)
		if err == nil {
			return d.picture()
		}
		if errors.Is(err, astiav.ErrEof) {
			return nil, astiav.ErrEof
		}
		if !errors.Is(err, astiav.ErrEagain) {
			return nil, fmt.Errorf("receive frame: %w", err)
		}
		if d.drained {
			return nil, astiav.ErrEof
		}

		if err := d.fc.ReadFrame(d.pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				d.drained = true
				if err := d.decCtx.SendPacket(nil); err != nil && !errors.Is(err, astiav.ErrEof) {
					return nil, fmt.Errorf("flush decoder: %w", err)
				}
				continue
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}
		if d.pkt.StreamIndex() != d.vs.Index() {
			d.pkt.Unref()
			continue
		}
		sendErr := d.decCtx.SendPacket(d.pkt)
		d.pkt.Unref()
		if sendErr != nil && !errors.Is(sendErr, astiav.ErrEagain) {
			return nil, fmt.Errorf("send packet: %w", sendErr)
		}
	}
}

func (d *decoder) picture() (*media.Picture, error) {
	pts := d.frame.Pts()
	if pts == astiav.NoPtsValue {
		pts = d.frame.PktDts()
	}
	w, h, data, err := d.conv.Convert(d.frame)
	d.frame.Unref()
	if err != nil {
		return nil, err
	}
	var ms int64
	if pts != astiav.NoPtsValue {
		ms = media.Rescale(pts, d.tb, media.MillisBase)
	}
	return &media.Picture{Width: w, Height: h, BGRA: data, PTSMillis: ms}, nil
}
