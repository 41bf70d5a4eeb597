package playback

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"reclip/media"
	"reclip/probe"
)

// stopTimeout bounds how long Stop waits for the decode goroutine to
// exit. A timeout is surfaced as an error rather than ignored: it means
// decoder resources may have leaked.
const stopTimeout = 3 * time.Second

// ErrStopTimeout means the decode goroutine did not exit within the
// bounded wait during Stop.
var ErrStopTimeout = errors.New("decode goroutine did not stop in time")

// Session is one playback source: a lazily spawned decode goroutine
// plus the lock-guarded state the UI polls. The caller-facing surface
// communicates only through that shared state and never reaches into
// decoder internals. Sessions are independently constructible and
// disposable; nothing here is process-global.
type Session struct {
	log  *slog.Logger
	id   string
	path string
	info probe.Info

	st state

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	runErr  error
}

// NewSession probes path and prepares a session. The decode goroutine
// is not spawned until the first command that needs it.
func NewSession(path string, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	info, err := probe.Probe(path)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	return &Session{
		log:    log.With("component", "playback", "session", id, "source", path),
		id:     id,
		path:   path,
		info:   info,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Info returns the probed source description.
func (s *Session) Info() probe.Info { return s.info }

// Start spawns the decode goroutine if it is not running yet. The
// session comes up paused; no frames are decoded until a play toggle,
// seek, or step arrives.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	s.log.Info("decode goroutine starting",
		"width", s.info.Width,
		"height", s.info.Height,
		"durationSeconds", s.info.Duration,
		"frameRate", s.info.FrameRate)
	go s.run()
}

// Stop signals the decode goroutine to exit and blocks until it has,
// bounded by stopTimeout, so a new source can safely replace this one
// without leaking or double-freeing decoder handles. Safe to call
// multiple times and before Start.
func (s *Session) Stop() error {
	s.mu.Lock()
	started := s.started
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
	s.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-s.doneCh:
		return nil
	case <-time.After(stopTimeout):
		s.log.Error("decode goroutine leak", "timeout", stopTimeout)
		return ErrStopTimeout
	}
}

// TogglePlayPause flips between Playing and Paused, spawning the decode
// goroutine on first use. It returns the new playing state.
func (s *Session) TogglePlayPause() bool {
	s.Start()
	return s.st.togglePlaying()
}

// Seek repositions playback to ms. With exact=false this is a coarse
// scrub: the demuxer lands at or before ms on a keyframe and playback
// resumes from there. With exact=true a single frame is decoded and
// published: the first frame at or after ms. Issuing a new seek before
// a prior one is serviced overwrites it; only the latest target is
// honored.
func (s *Session) Seek(ms int64, exact bool) {
	s.Start()
	s.st.requestSeek(s.clamp(ms), exact, StepNone)
}

// StepForward pauses playback and advances exactly one frame: the first
// frame at or after the current position plus one frame interval.
func (s *Session) StepForward() {
	s.Start()
	s.st.setPlaying(false)
	pos, _, _ := s.st.snapshot()
	target := s.clamp(pos + s.info.FrameIntervalMillis())
	s.st.requestSeek(target, true, StepForward)
}

// StepBackward pauses playback and moves to the last frame strictly
// before the current position. The decode goroutine starts its scan two
// frame intervals earlier, since compressed video only decodes forward
// from a keyframe.
func (s *Session) StepBackward() {
	s.Start()
	s.st.setPlaying(false)
	pos, _, _ := s.st.snapshot()
	s.st.requestSeek(s.clamp(pos), true, StepBackward)
}

// Position returns the current playback position in milliseconds.
func (s *Session) Position() int64 {
	pos, _, _ := s.st.snapshot()
	return pos
}

// LatestFrame returns the most recently published picture and its
// sequence number; the sequence increments per publish so pollers can
// detect new frames without comparing buffers. The picture is nil until
// the first decode completes.
func (s *Session) LatestFrame() (*media.Picture, uint64) {
	_, pic, seq := s.st.snapshot()
	return pic, seq
}

// Playing reports whether continuous playback is active.
func (s *Session) Playing() bool {
	return s.st.isPlaying()
}

// Err returns the terminal error of the decode goroutine, if any. A
// session whose goroutine died never publishes frames; this is how the
// caller can find out why.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runErr
}

func (s *Session) setErr(err error) {
	s.mu.Lock()
	s.runErr = err
	s.mu.Unlock()
}

func (s *Session) clamp(ms int64) int64 {
	if ms < 0 {
		return 0
	}
	if d := s.info.DurationMillis(); d > 0 && ms > d {
		return d
	}
	return ms
}
