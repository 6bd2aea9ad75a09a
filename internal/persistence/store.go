// Package persistence defines the signal store contract and an in-memory
// implementation used for tests and storeless runs.
package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/memerun/memerun/internal/domain"
)

// SignalStore persists signals, their outcomes, and the dynamic
// thresholds. Outcomes are written by an out-of-core component.
type SignalStore interface {
	HasOpenPosition(ctx context.Context, addr domain.TokenAddress) (bool, error)
	RecordSignal(ctx context.Context, sig *domain.Signal) (string, error)
	RecordOutcome(ctx context.Context, outcome domain.SignalOutcome) error
	GetRecentSignalsWithOutcomes(ctx context.Context, window time.Duration) ([]domain.SignalRow, error)
	LoadThresholds(ctx context.Context) (*domain.Thresholds, error)
	PersistThresholds(ctx context.Context, t domain.Thresholds) error
}

// MemoryStore is a map-backed SignalStore. An open position is any signal
// without a recorded outcome.
type MemoryStore struct {
	mu         sync.RWMutex
	signals    map[string]*domain.Signal
	outcomes   map[string]*domain.SignalOutcome
	thresholds *domain.Thresholds
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		signals:  make(map[string]*domain.Signal),
		outcomes: make(map[string]*domain.SignalOutcome),
	}
}

func (m *MemoryStore) HasOpenPosition(ctx context.Context, addr domain.TokenAddress) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for id, sig := range m.signals {
		if sig.TokenMetrics.Address == addr && m.outcomes[id] == nil {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) RecordSignal(ctx context.Context, sig *domain.Signal) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sig.ID == "" {
		if id, err := uuid.NewV7(); err == nil {
			sig.ID = id.String()
		} else {
			sig.ID = uuid.NewString()
		}
	}
	cp := *sig
	m.signals[sig.ID] = &cp
	return sig.ID, nil
}

func (m *MemoryStore) RecordOutcome(ctx context.Context, outcome domain.SignalOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.signals[outcome.SignalID]; !ok {
		return fmt.Errorf("unknown signal %s", outcome.SignalID)
	}
	cp := outcome
	m.outcomes[outcome.SignalID] = &cp
	return nil
}

func (m *MemoryStore) GetRecentSignalsWithOutcomes(ctx context.Context, window time.Duration) ([]domain.SignalRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cutoff := time.Now().Add(-window)

	rows := make([]domain.SignalRow, 0, len(m.signals))
	for id, sig := range m.signals {
		if sig.GeneratedAt.Before(cutoff) {
			continue
		}
		row := domain.SignalRow{Signal: *sig}
		if out := m.outcomes[id]; out != nil {
			cp := *out
			row.Outcome = &cp
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (m *MemoryStore) LoadThresholds(ctx context.Context) (*domain.Thresholds, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.thresholds == nil {
		return nil, nil
	}
	cp := *m.thresholds
	return &cp, nil
}

func (m *MemoryStore) PersistThresholds(ctx context.Context, t domain.Thresholds) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds = &t
	return nil
}
