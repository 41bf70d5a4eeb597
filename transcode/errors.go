package transcode

import "errors"

// Failure kinds for a transcode run. All are terminal; none are retried.
var (
	// ErrInvalidRange means end <= start or the range lies outside the
	// source. Rejected before any codec resource is opened.
	ErrInvalidRange = errors.New("invalid time range")
	// ErrInvalidDivisor means the scale divisor is not 1, 2, or 4.
	ErrInvalidDivisor = errors.New("invalid scale divisor")
	// ErrOpenFailed covers source open, stream parse, and decoder setup
	// failures.
	ErrOpenFailed = errors.New("open failed")
	// ErrNoVideoStream means the source holds no video stream.
	ErrNoVideoStream = errors.New("no video stream")
	// ErrNoEncoder means neither the hardware nor the software H.264
	// encoder exists in the linked FFmpeg build.
	ErrNoEncoder = errors.New("no usable encoder")
	// ErrEncodeOpenFailed means the selected encoder could not be
	// configured or opened.
	ErrEncodeOpenFailed = errors.New("encoder open failed")
	// ErrMuxOpenFailed means the output container could not be created,
	// opened for writing, or its header written.
	ErrMuxOpenFailed = errors.New("mux open failed")
	// ErrWriteFailed means an encoded packet could not be written.
	ErrWriteFailed = errors.New("write failed")
)
