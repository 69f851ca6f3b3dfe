// Package store provides PolicyStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
)

// Memory holds the policy in process memory. Contents are lost on restart.
type Memory struct {
	mu     sync.RWMutex
	policy domain.Policy
	found  bool
}

// NewMemory returns an empty store.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Get(ctx context.Context) (domain.Policy, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Policy{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.policy, m.found, nil
}

func (m *Memory) Put(ctx context.Context, p domain.Policy) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policy = p
	m.found = true
	return nil
}
