package probe

import (
	"errors"
	"fmt"

	"github.com/asticode/go-astiav"

	"reclip/internal/scale"
	"reclip/media"
)

// PosterFrame decodes the frame at the middle of the whole clip and
// returns it as a BGRA picture, for display while the user configures a
// job. The midpoint is always computed from the full duration, never
// from a custom range. If the backward-biased seek fails the decode
// simply starts from the head of the stream.
func PosterFrame(path string) (media.Picture, error) {
	return FrameAt(path, -1)
}

// midpointSeconds halves a container duration (the demuxer's 1/1000000
// clock) into seconds. An undeclared or non-positive duration maps to
// the head of the stream.
func midpointSeconds(containerDuration int64) float64 {
	if containerDuration == astiav.NoPtsValue || containerDuration <= 0 {
		return 0
	}
	return float64(containerDuration) / float64(media.MicrosBase.Den) / 2
}

// FrameAt decodes the first frame at or after the given time in
// seconds. A negative atSeconds selects the clip midpoint.
func FrameAt(path string, atSeconds float64) (media.Picture, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return media.Picture{}, fmt.Errorf("%w: alloc format context", ErrOpenFailed)
	}
	defer fc.Free()

	if err := fc.OpenInput(path, nil, nil); err != nil {
		return media.Picture{}, fmt.Errorf("%w: %s: %v", ErrOpenFailed, path, err)
	}
	defer fc.CloseInput()

	if err := fc.FindStreamInfo(nil); err != nil {
		return media.Picture{}, fmt.Errorf("%w: %v", ErrStreamInfoFailed, err)
	}

	vs := FirstStream(fc, astiav.MediaTypeVideo)
	if vs == nil {
		return media.Picture{}, fmt.Errorf("%w: %s", ErrNoVideoStream, path)
	}

	dec := astiav.FindDecoder(vs.CodecParameters().CodecID())
	if dec == nil {
		return media.Picture{}, fmt.Errorf("%w: no decoder for %s", ErrOpenFailed, vs.CodecParameters().CodecID())
	}
	decCtx := astiav.AllocCodecContext(dec)
	if decCtx == nil {
		return media.Picture{}, fmt.Errorf("%w: alloc decoder context", ErrOpenFailed)
	}
	defer decCtx.Free()

	if err := vs.CodecParameters().ToCodecContext(decCtx); err != nil {
		return media.Picture{}, fmt.Errorf("%w: decoder parameters: %v", ErrOpenFailed, err)
	}
	if err := decCtx.Open(dec, nil); err != nil {
		return media.Picture{}, fmt.Errorf("%w: open decoder: %v", ErrOpenFailed, err)
	}

	if atSeconds < 0 {
		atSeconds = midpointSeconds(fc.Duration())
	}

	// Land at or before the requested time; a failed seek just means we
	// decode from wherever the demuxer is.
	target := media.Rescale(int64(atSeconds*1000), media.MillisBase, rational(vs.TimeBase()))
	if err := fc.SeekFrame(vs.Index(), target, astiav.NewSeekFlags(astiav.SeekFlagBackward)); err == nil {
		decCtx.FlushBuffers()
	}

	var conv scale.BGRA
	defer conv.Close()

	pkt := astiav.AllocPacket()
	defer pkt.Free()
	frame := astiav.AllocFrame()
	defer frame.Free()

	for {
		if err := fc.ReadFrame(pkt); err != nil {
			if errors.Is(err, astiav.ErrEof) {
				return media.Picture{}, fmt.Errorf("%w: no decodable frame at %.2fs", ErrOpenFailed, atSeconds)
			}
			return media.Picture{}, fmt.Errorf("%w: read frame: %v", ErrOpenFailed, err)
		}
		if pkt.StreamIndex() != vs.Index() {
			pkt.Unref()
			continue
		}
		err := decCtx.SendPacket(pkt)
		pkt.Unref()
		if err != nil && !errors.Is(err, astiav.ErrEagain) {
			return media.Picture{}, fmt.Errorf("%w: send packet: %v", ErrOpenFailed, err)
		}

		if err := decCtx.ReceiveFrame(frame); err != nil {
			if errors.Is(err, astiav.ErrEagain) {
				continue
			}
			return media.Picture{}, fmt.Errorf("%w: receive frame: %v", ErrOpenFailed, err)
		}

		w, h, data, err := conv.Convert(frame)
		pts := frame.Pts()
		frame.Unref()
		if err != nil {
			return media.Picture{}, err
		}
		return media.Picture{
			Width:     w,
			Height:    h,
			BGRA:      data,
			PTSMillis: media.Rescale(pts, rational(vs.TimeBase()), media.MillisBase),
		}, nil
	}
}
