package capture

import (
	"context"
	"errors"
	"sync"
)

// FrameSource adapts an already-captured burst, such as a client upload, to
// the Source interface. An exhausted burst reads as a source failure: the
// caller did not deliver enough frames.
type FrameSource struct {
	mu     sync.Mutex
	frames [][]byte
	pos    int
	closed bool
}

// NewFrameSource wraps the given frames without copying.
func NewFrameSource(frames [][]byte) *FrameSource {
	return &FrameSource{frames: frames}
}

// Next returns the next frame of the burst.
func (s *FrameSource) Next(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("frame source closed")
	}
	if s.pos >= len(s.frames) {
		return nil, errors.New("frame burst exhausted")
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

// Close drops the buffered frames.
func (s *FrameSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.frames = nil
	return nil
}
