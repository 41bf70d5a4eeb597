package playback

import "reclip/media"

// stepPicker resolves one exact seek or single-frame step by watching
// the decoded frames that follow the physical seek.
//
// Forward steps (and plain exact seeks) take the first frame at or
// after the target. Backward steps cannot decode in reverse, so the
// scan starts earlier in the stream and tracks the last frame strictly
// before the target; reaching a frame at or past the target resolves to
// that tracked candidate. When no earlier frame exists, e.g. a backward
// step at stream start, the boundary frame itself is published rather
// than failing. Both directions track the best frame seen so far, so a
// scan that hits end of stream still resolves: a forward target past
// the last frame lands on the last frame.
type stepPicker struct {
	direction    StepDirection
	targetMillis int64
	candidate    *media.Picture
}

// offer feeds the next decoded frame to the picker. It returns the
// picture to publish and done=true once the step resolves; until then
// it returns (nil, false). A scan holds at most one trial frame: each
// new pre-target frame replaces the previous candidate, so the scan
// never accumulates memory.
func (p *stepPicker) offer(pic *media.Picture) (*media.Picture, bool) {
	if p.direction == StepBackward {
		if pic.PTSMillis < p.targetMillis {
			p.candidate = pic
			return nil, false
		}
		if p.candidate != nil {
			return p.candidate, true
		}
		return pic, true
	}
	if pic.PTSMillis >= p.targetMillis {
		return pic, true
	}
	p.candidate = pic
	return nil, false
}

// finish returns the best available picture when the stream ends before
// the scan resolves, which happens when the target lies at or past the
// last frame.
func (p *stepPicker) finish() (*media.Picture, bool) {
	if p.candidate != nil {
		return p.candidate, true
	}
	return nil, false
}
