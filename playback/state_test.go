package playback

import "testing"

func TestStateSeekCoalescing(t *testing.T) {
	t.Parallel()

	var st state
	st.requestSeek(1_000, false, StepNone)
	st.requestSeek(2_000, true, StepForward)

	req := st.takePending()
	if req == nil {
		t.Fatal("no pending request")
	}
	if req.targetMillis != 2_000 || !req.exact || req.step != StepForward {
		t.Errorf("got %+v, want latest request only", req)
	}
	if st.takePending() != nil {
		t.Error("pending request survived takePending")
	}
}

func TestStateRepeatedSeekIsIdempotent(t *testing.T) {
	t.Parallel()

	var st state
	st.requestSeek(5_000, false, StepNone)
	st.requestSeek(5_000, false, StepNone)

	if req := st.takePending(); req == nil || req.targetMillis != 5_000 {
		t.Fatalf("got %+v, want single 5000ms request", req)
	}
	if st.takePending() != nil {
		t.Error("duplicate seek left a second pending request")
	}
}

func TestStatePublish(t *testing.T) {
	t.Parallel()

	var st state
	if _, p, seq := st.snapshot(); p != nil || seq != 0 {
		t.Fatalf("fresh state published a frame: %v seq %d", p, seq)
	}

	st.publish(pic(330))
	pos, p, seq := st.snapshot()
	if p == nil || p.PTSMillis != 330 {
		t.Fatalf("got %v, want frame at 330", p)
	}
	if pos != 330 {
		t.Errorf("position %d, want 330 (follows published frame)", pos)
	}
	if seq != 1 {
		t.Errorf("seq %d, want 1", seq)
	}

	st.publish(pic(363))
	_, _, seq = st.snapshot()
	if seq != 2 {
		t.Errorf("seq %d, want 2", seq)
	}
}

func TestStateTogglePlaying(t *testing.T) {
	t.Parallel()

	var st state
	if st.isPlaying() {
		t.Fatal("fresh state is playing")
	}
	if !st.togglePlaying() {
		t.Error("first toggle should start playback")
	}
	if st.togglePlaying() {
		t.Error("second toggle should pause")
	}
}
