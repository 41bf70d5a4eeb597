package media

import (
	"errors"
	"fmt"
)

// ErrInvalidBudget is returned when a size/duration pair cannot yield a
// positive bitrate. Callers must reject the request before opening any
// codec resource.
var ErrInvalidBudget = errors.New("invalid encode budget")

// videoShare is the fraction of the byte budget handed to the video
// encoder. The remainder absorbs passthrough audio and container
// overhead.
const videoShare = 0.95

// ComputeBitrate converts a target file size in megabytes over a
// duration in seconds into a constant-bitrate target in bits per
// second, floored. The result is a rate-control intent, not a hard
// size guarantee: encoders overshoot near scene changes and GOP
// boundaries.
func ComputeBitrate(sizeMB, durationSeconds float64) (int64, error) {
	if durationSeconds <= 0 {
		return 0, fmt.Errorf("%w: non-positive duration %.3fs", ErrInvalidBudget, durationSeconds)
	}
	rate := int64(sizeMB * 8 * 1024 * 1024 * videoShare / durationSeconds)
	if rate <= 0 {
		return 0, fmt.Errorf("%w: %.2fMB over %.3fs yields %d b/s", ErrInvalidBudget, sizeMB, durationSeconds, rate)
	}
	return rate, nil
}
