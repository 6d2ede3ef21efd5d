// Package store provides contract.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/contract-revenue/contract"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	contracts map[string]contract.Contract
	schedules map[string][]contract.RevenueItem
	snapshots map[string][]contract.ForwardBookSnapshot
}

var _ contract.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		contracts: make(map[string]contract.Contract),
		schedules: make(map[string][]contract.RevenueItem),
		snapshots: make(map[string][]contract.ForwardBookSnapshot),
	}
}

// SaveContract stores a copy so later caller mutations do not leak in.
func (m *Memory) SaveContract(_ context.Context, c contract.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ID] = clone(c)
	return nil
}

func (m *Memory) GetContract(_ context.Context, id string) (*contract.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contracts[id]
	if !ok {
		return nil, contract.ErrContractNotFound
	}
	out := clone(c)
	return &out, nil
}

func (m *Memory) ListContracts(_ context.Context) ([]contract.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]contract.Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		out = append(out, clone(c))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) DeleteContract(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contracts[id]; !ok {
		return contract.ErrContractNotFound
	}
	delete(m.contracts, id)
	delete(m.schedules, id)
	delete(m.snapshots, id)
	return nil
}

// ReplaceSchedule swaps the whole schedule under one lock.
func (m *Memory) ReplaceSchedule(_ context.Context, contractID string, items []contract.RevenueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contracts[contractID]; !ok {
		return contract.ErrContractNotFound
	}
	m.schedules[contractID] = append([]contract.RevenueItem(nil), items...)
	return nil
}

func (m *Memory) LoadSchedule(_ context.Context, contractID string) ([]contract.RevenueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := append([]contract.RevenueItem{}, m.schedules[contractID]...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Sequence < items[j].Sequence })
	return items, nil
}

func (m *Memory) SaveSnapshot(_ context.Context, s contract.ForwardBookSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contracts[s.ContractID]; !ok {
		return contract.ErrContractNotFound
	}
	m.snapshots[s.ContractID] = append(m.snapshots[s.ContractID], s)
	return nil
}

func (m *Memory) ListSnapshots(_ context.Context, contractID string) ([]contract.ForwardBookSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := append([]contract.ForwardBookSnapshot{}, m.snapshots[contractID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TakenAt.Before(out[j].TakenAt) })
	return out, nil
}

func clone(c contract.Contract) contract.Contract {
	c.Milestones = append([]contract.Milestone{}, c.Milestones...)
	c.Deliverables = append([]string{}, c.Deliverables...)
	return c
}
