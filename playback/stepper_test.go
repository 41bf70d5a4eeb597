package playback

import (
	"testing"

	"reclip/media"
)

func pic(ms int64) *media.Picture {
	return &media.Picture{Width: 16, Height: 9, PTSMillis: ms}
}

func TestStepPickerForward(t *testing.T) {
	t.Parallel()

	p := &stepPicker{direction: StepForward, targetMillis: 100}

	if got, done := p.offer(pic(66)); done {
		t.Fatalf("frame before target resolved early: %v", got)
	}
	got, done := p.offer(pic(100))
	if !done {
		t.Fatal("frame at target did not resolve")
	}
	if got.PTSMillis != 100 {
		t.Errorf("got %d, want 100", got.PTSMillis)
	}
}

func TestStepPickerForwardLandsPastTarget(t *testing.T) {
	t.Parallel()

	p := &stepPicker{direction: StepForward, targetMillis: 100}

	got, done := p.offer(pic(133))
	if !done {
		t.Fatal("frame past target did not resolve")
	}
	if got.PTSMillis != 133 {
		t.Errorf("got %d, want 133", got.PTSMillis)
	}
}

func TestStepPickerBackward(t *testing.T) {
	t.Parallel()

	p := &stepPicker{direction: StepBackward, targetMillis: 100}

	// Frames before the target each replace the candidate.
	for _, ms := range []int64{33, 66} {
		if got, done := p.offer(pic(ms)); done {
			t.Fatalf("frame %d resolved early: %v", ms, got)
		}
	}
	// Reaching the target resolves to the last frame strictly before it.
	got, done := p.offer(pic(100))
	if !done {
		t.Fatal("frame at target did not resolve")
	}
	if got.PTSMillis != 66 {
		t.Errorf("got %d, want 66 (last frame before target)", got.PTSMillis)
	}
}

// A backward step at the very start of the stream has no earlier frame
// to fall back to; the boundary frame itself is the answer.
func TestStepPickerBackwardAtStreamStart(t *testing.T) {
	t.Parallel()

	p := &stepPicker{direction: StepBackward, targetMillis: 0}

	got, done := p.offer(pic(0))
	if !done {
		t.Fatal("boundary frame did not resolve")
	}
	if got.PTSMillis != 0 {
		t.Errorf("got %d, want boundary frame 0", got.PTSMillis)
	}
}

// A forward step whose target lies past the last frame must still
// resolve at end of stream, to the last decoded frame, instead of
// leaving the published slot stale.
func TestStepPickerForwardPastEndOfStream(t *testing.T) {
	t.Parallel()

	p := &stepPicker{direction: StepForward, targetMillis: 10_000}
	for _, ms := range []int64{9_900, 9_933, 9_966} {
		if got, done := p.offer(pic(ms)); done {
			t.Fatalf("frame %d resolved early: %v", ms, got)
		}
	}

	got, ok := p.finish()
	if !ok {
		t.Fatal("finish returned no candidate")
	}
	if got.PTSMillis != 9_966 {
		t.Errorf("got %d, want last frame 9966", got.PTSMillis)
	}
}

// When the stream ends before any frame reaches the target, the scan
// settles on the best candidate seen.
func TestStepPickerFinish(t *testing.T) {
	t.Parallel()

	p := &stepPicker{direction: StepBackward, targetMillis: 10_000}
	p.offer(pic(9_900))
	p.offer(pic(9_933))

	got, ok := p.finish()
	if !ok {
		t.Fatal("finish returned no candidate")
	}
	if got.PTSMillis != 9_933 {
		t.Errorf("got %d, want 9933", got.PTSMillis)
	}

	empty := &stepPicker{direction: StepForward, targetMillis: 10_000}
	if got, ok := empty.finish(); ok {
		t.Errorf("empty scan produced %v", got)
	}
}
