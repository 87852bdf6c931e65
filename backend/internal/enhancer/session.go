package enhancer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"sd-prompt-enhancer/backend/internal/prompt"
	"sd-prompt-enhancer/backend/internal/state"
	apperrors "sd-prompt-enhancer/backend/pkg/errors"
)

// Outcome is what a submission's worker hands back
type Outcome struct {
	Result prompt.Formatted
	Err    error
}

// Session allows at most one outstanding submission and keeps the
// transcript of completed exchanges.
type Session struct {
	ID        string
	CreatedAt time.Time

	enhancer *Enhancer
	inflight *semaphore.Weighted
	busy     atomic.Bool
	logger   *zap.Logger

	mu         sync.Mutex
	transcript []state.Exchange
	last       *prompt.Formatted
}

func newSession(id string, e *Enhancer) *Session {
	return &Session{
		ID:         id,
		CreatedAt:  time.Now(),
		enhancer:   e,
		inflight:   semaphore.NewWeighted(1),
		logger:     e.logger.With(zap.String("session_id", id)),
		transcript: []state.Exchange{},
	}
}

// Submit validates the request and starts a worker for the backend call.
// Rejected requests return an error and make no call. The worker cannot be
// cancelled: it runs until the backend answers or the adapter timeout fires,
// then records the exchange and sends exactly one Outcome.
func (s *Session) Submit(ctx context.Context, req state.EnhancementRequest) (<-chan Outcome, error) {
	payload, deco, err := s.enhancer.Prepare(req)
	if err != nil {
		s.logger.Debug("Submission rejected", zap.Error(err))
		return nil, err
	}

	if !s.inflight.TryAcquire(1) {
		return nil, apperrors.ErrSessionBusy
	}
	s.busy.Store(true)

	// Tentative until the worker reports success
	s.mu.Lock()
	mark := len(s.transcript)
	s.transcript = append(s.transcript, state.NewExchange(state.RoleUser, req.BasePrompt))
	s.mu.Unlock()

	out := make(chan Outcome, 1)
	workerCtx := context.WithoutCancel(ctx)

	go func() {
		result, err := s.enhancer.run(workerCtx, payload, deco)

		s.mu.Lock()
		if err != nil {
			s.transcript = s.transcript[:mark]
		} else {
			s.transcript = append(s.transcript, state.NewExchange(state.RoleModel, result.Positive))
			s.last = &result
		}
		s.mu.Unlock()

		s.busy.Store(false)
		s.inflight.Release(1)
		if err != nil {
			s.logger.Info("Submission rolled back", zap.String("error_type", string(apperrors.TypeOf(err))))
		}
		out <- Outcome{Result: result, Err: err}
		close(out)
	}()

	return out, nil
}

// Enhance submits and waits for the outcome. If ctx ends first the call keeps
// running and its outcome is still recorded.
func (s *Session) Enhance(ctx context.Context, req state.EnhancementRequest) (prompt.Formatted, error) {
	ch, err := s.Submit(ctx, req)
	if err != nil {
		return prompt.Formatted{}, err
	}
	select {
	case o := <-ch:
		return o.Result, o.Err
	case <-ctx.Done():
		return prompt.Formatted{}, ctx.Err()
	}
}

// Busy reports whether a submission is outstanding. It never takes the
// submission slot.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Transcript returns a copy of the completed exchanges, oldest first
func (s *Session) Transcript() []state.Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]state.Exchange{}, s.transcript...)
}

// Last returns the most recent successful result
func (s *Session) Last() (prompt.Formatted, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return prompt.Formatted{}, false
	}
	return *s.last, true
}
