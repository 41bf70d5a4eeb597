// Package playback drives a frame-accurate preview over a single
// source: continuous playback, coarse scrub seeking, and exact
// forward/backward single-frame stepping, all served by one background
// decode goroutine per session.
package playback

import (
	"sync"

	"reclip/media"
)

// StepDirection tags a pending exact seek with which frame the decode
// that follows must select: the first frame at or after the target
// (forward), or the last frame strictly before it (backward).
type StepDirection int

const (
	StepNone StepDirection = iota
	StepForward
	StepBackward
)

// seekRequest is a pending reposition order. Only the most recent
// request is kept; the decode goroutine consumes it at the top of its
// loop, so a seek issued during playback takes effect on the next frame
// boundary, never mid-frame.
type seekRequest struct {
	targetMillis int64
	exact        bool
	step         StepDirection
}

// state is the lock-guarded surface shared between the caller and the
// decode goroutine. The goroutine is the only writer of position and
// frame; the caller is the only writer of playing and pending. The lock
// is held for field swaps only, never across a decode or scale call, so
// polling the caller side never stalls on codec work.
type state struct {
	mu       sync.Mutex
	playing  bool
	position int64 // milliseconds
	pending  *seekRequest
	frame    *media.Picture
	frameSeq uint64
}

func (st *state) setPlaying(v bool) {
	st.mu.Lock()
	st.playing = v
	st.mu.Unlock()
}

func (st *state) togglePlaying() bool {
	st.mu.Lock()
	st.playing = !st.playing
	v := st.playing
	st.mu.Unlock()
	return v
}

func (st *state) isPlaying() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.playing
}

// requestSeek overwrites any pending request: seeks are idempotent in
// intent and only the latest one is honored.
func (st *state) requestSeek(targetMillis int64, exact bool, step StepDirection) {
	st.mu.Lock()
	st.pending = &seekRequest{targetMillis: targetMillis, exact: exact, step: step}
	st.mu.Unlock()
}

// takePending removes and returns the pending request, if any.
func (st *state) takePending() *seekRequest {
	st.mu.Lock()
	req := st.pending
	st.pending = nil
	st.mu.Unlock()
	return req
}

// publish installs a newly decoded picture as the single published
// slot. The swap is one visible update; the previous picture is simply
// dropped for the garbage collector once no caller holds it.
func (st *state) publish(pic *media.Picture) {
	st.mu.Lock()
	st.frame = pic
	st.frameSeq++
	st.position = pic.PTSMillis
	st.mu.Unlock()
}

func (st *state) setPosition(ms int64) {
	st.mu.Lock()
	st.position = ms
	st.mu.Unlock()
}

// snapshot returns the current position together with the latest
// published picture and its sequence number, which increments on every
// publish so pollers can cheaply detect new frames.
func (st *state) snapshot() (positionMillis int64, pic *media.Picture, seq uint64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.position, st.frame, st.frameSeq
}
