package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// StubProvider is an in-memory Provider for development and tests. It honors
// idempotency keys the way a real processor does: the first call for a key
// creates an intent, every repeat returns the stored original.
type StubProvider struct {
	mu      sync.Mutex
	intents map[string]*Intent

	// FailWith, when set, is returned for every create call. Tests use it to
	// simulate processor outages and conflict modes.
	FailWith error
}

// NewStubProvider creates an empty stub provider.
func NewStubProvider() *StubProvider {
	return &StubProvider{intents: make(map[string]*Intent)}
}

// CreateIntent returns the stored intent for a repeated idempotency key, or
// creates and stores a new captured intent.
func (s *StubProvider) CreateIntent(ctx context.Context, request CreateIntentRequest) (*Intent, error) {
	if request.IdempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if intent, ok := s.intents[request.IdempotencyKey]; ok {
		return intent, nil
	}

	if s.FailWith != nil {
		return nil, s.FailWith
	}

	status := StatusAuthorized
	if request.CaptureImmediately {
		status = StatusCaptured
	}
	intent := &Intent{
		Reference: fmt.Sprintf("pi_%s", uuid.NewString()),
		Status:    status,
	}
	s.intents[request.IdempotencyKey] = intent
	return intent, nil
}

// IntentCount returns the number of distinct intents created (test helper).
func (s *StubProvider) IntentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.intents)
}
