package media

// Picture is a decoded video frame converted to tightly packed BGRA
// (width*4 bytes per row), together with its presentation time. The
// playback engine publishes a fresh Picture per frame and never mutates
// one after publication, so holders may keep it without copying.
type Picture struct {
	Width     int
	Height    int
	BGRA      []byte
	PTSMillis int64
}
