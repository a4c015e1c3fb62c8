package device

import (
	"context"
	"sync"

	"github.com/mbeltza/tripscribe/internal/core/domain"
)

// Source implements ports.LocationProvider for polled deployments: a
// platform location callback feeds samples through Push and the
// tracker's timer loop picks the freshest one up on its next tick.
// Each sample is handed out at most once; a tick with nothing new gets
// nil. Samples ingested directly (the HTTP push endpoint) bypass the
// Source entirely.
type Source struct {
	mu         sync.Mutex
	latest     *domain.RawSample
	permission bool
}

// NewSource creates a Source with permission granted.
func NewSource() *Source {
	return &Source{permission: true}
}

// Push stores a raw device sample for the next sampling tick.
func (s *Source) Push(raw *domain.RawSample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = raw
}

// CurrentFix returns the freshest un-consumed sample, or nil.
func (s *Source) CurrentFix(ctx context.Context) (*domain.RawSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw := s.latest
	s.latest = nil
	return raw, nil
}

// HasPermission reports whether the location capability is granted.
func (s *Source) HasPermission(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission
}

// SetPermission toggles the location capability grant.
func (s *Source) SetPermission(granted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permission = granted
}
