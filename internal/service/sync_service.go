package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-roster-api/internal/dto"
)

type syncChannel interface {
	Available() bool
	Publish(ctx context.Context, professorID string, payload []byte) error
	Subscribe(ctx context.Context, professorID string) (<-chan []byte, func() error, error)
}

// RefreshToken captures a professor's sync generation before a background refresh starts.
type RefreshToken struct {
	ProfessorID string
	Generation  uint64
	Busy        bool
}

type generation struct {
	value    uint64
	inFlight int
}

// SyncService tracks per-professor generations and fans change events out to dashboard
// streams, over Redis when available and in process otherwise.
type SyncService struct {
	channel syncChannel
	logger  *zap.Logger
	now     func() time.Time

	mu          sync.Mutex
	generations map[string]*generation
	local       map[string]map[chan dto.SyncEvent]struct{}
}

// NewSyncService constructs a SyncService. channel may be nil.
func NewSyncService(channel syncChannel, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		channel:     channel,
		logger:      logger,
		now:         time.Now,
		generations: make(map[string]*generation),
		local:       make(map[string]map[chan dto.SyncEvent]struct{}),
	}
}

func (s *SyncService) gen(professorID string) *generation {
	g, ok := s.generations[professorID]
	if !ok {
		g = &generation{}
		s.generations[professorID] = g
	}
	return g
}

// Begin marks an import in flight and invalidates outstanding refresh tokens.
func (s *SyncService) Begin(professorID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.gen(professorID)
	g.value++
	g.inFlight++
	return g.value
}

// End marks the import finished and invalidates tokens taken while it ran.
func (s *SyncService) End(professorID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.gen(professorID)
	g.value++
	if g.inFlight > 0 {
		g.inFlight--
	}
	return g.value
}

// Token snapshots the professor's generation.
func (s *SyncService) Token(professorID string) RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.gen(professorID)
	return RefreshToken{ProfessorID: professorID, Generation: g.value, Busy: g.inFlight > 0}
}

// Current reports whether a refresh started with token may still apply its result.
func (s *SyncService) Current(token RefreshToken) bool {
	if token.Busy {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.gen(token.ProfessorID)
	return g.value == token.Generation && g.inFlight == 0
}

// Generation returns the professor's current generation.
func (s *SyncService) Generation(professorID string) uint64 {
	return s.Token(professorID).Generation
}

// Publish announces a dashboard change.
func (s *SyncService) Publish(ctx context.Context, professorID, reason string) {
	event := dto.SyncEvent{
		ProfessorID: professorID,
		Generation:  s.Generation(professorID),
		Reason:      reason,
		At:          s.now().UTC(),
	}

	if s.channel != nil && s.channel.Available() {
		payload, err := json.Marshal(event)
		if err == nil {
			if err = s.channel.Publish(ctx, professorID, payload); err == nil {
				return
			}
		}
		s.logger.Warn("sync publish failed, falling back to local fanout", zap.String("professor_id", professorID), zap.Error(err))
	}
	s.fanout(event)
}

func (s *SyncService) fanout(event dto.SyncEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.local[event.ProfessorID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe streams the professor's change events until ctx ends. Local subscribers are also
// registered when Redis carries the events so that fallback fanout still reaches them.
func (s *SyncService) Subscribe(ctx context.Context, professorID string) (<-chan dto.SyncEvent, func()) {
	out := make(chan dto.SyncEvent, 16)

	s.mu.Lock()
	if s.local[professorID] == nil {
		s.local[professorID] = make(map[chan dto.SyncEvent]struct{})
	}
	s.local[professorID][out] = struct{}{}
	s.mu.Unlock()

	var closeRemote func() error
	if s.channel != nil && s.channel.Available() {
		remote, closer, err := s.channel.Subscribe(ctx, professorID)
		if err != nil {
			s.logger.Warn("sync subscribe failed, using local fanout", zap.String("professor_id", professorID), zap.Error(err))
		} else {
			closeRemote = closer
			go s.forward(ctx, professorID, remote, out)
		}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if closeRemote != nil {
				_ = closeRemote()
			}
			s.mu.Lock()
			delete(s.local[professorID], out)
			if len(s.local[professorID]) == 0 {
				delete(s.local, professorID)
			}
			s.mu.Unlock()
		})
	}
	return out, cancel
}

func (s *SyncService) forward(ctx context.Context, professorID string, remote <-chan []byte, out chan dto.SyncEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-remote:
			if !ok {
				return
			}
			var event dto.SyncEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				s.logger.Warn("discarding malformed sync event", zap.String("professor_id", professorID), zap.Error(err))
				continue
			}
			s.mu.Lock()
			_, registered := s.local[professorID][out]
			if registered {
				select {
				case out <- event:
				default:
				}
			}
			s.mu.Unlock()
		}
	}
}
