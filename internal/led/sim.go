package led

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Sim counts frames and keeps the last one, useful for headless runs and
// tests. Safe for concurrent writers; each simulated engine streams from its
// own completion context.
type Sim struct {
	mu     sync.Mutex
	frames int
	last   []byte
}

func NewSim() *Sim { return &Sim{} }

func (s *Sim) Write(grb []byte) error {
	s.mu.Lock()
	s.frames++
	s.last = append(s.last[:0], grb...)
	n := s.frames
	s.mu.Unlock()
	log.Debug().Int("frame", n).Int("bytes", len(grb)).Msg("sim sink")
	return nil
}

func (s *Sim) Close() error { return nil }

// Frames returns how many transfers have landed here.
func (s *Sim) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// Last returns a copy of the most recent frame.
func (s *Sim) Last() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.last))
	copy(out, s.last)
	return out
}
