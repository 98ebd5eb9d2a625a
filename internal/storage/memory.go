package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/ppiankov/claimforge/internal/model"
)

// Memory is an in-process card store: a card map keyed by id plus a
// per-item secondary index. No global state; instantiate one per run or
// test.
type Memory struct {
	mu     sync.RWMutex
	cards  map[string]model.ClaimCard
	byItem map[string][]string // item id -> card ids, insertion order
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		cards:  make(map[string]model.ClaimCard),
		byItem: make(map[string][]string),
	}
}

// Name identifies the adapter.
func (m *Memory) Name() string {
	return "memory"
}

// SaveCard upserts one card and links it to the item.
func (m *Memory) SaveCard(_ context.Context, card model.ClaimCard, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cards[card.ID] = card
	if itemID != "" && !slices.Contains(m.byItem[itemID], card.ID) {
		m.byItem[itemID] = append(m.byItem[itemID], card.ID)
	}
	return nil
}

// SaveCardsForItem upserts all cards for an item.
func (m *Memory) SaveCardsForItem(ctx context.Context, cards []model.ClaimCard, itemID string) error {
	for _, card := range cards {
		if err := m.SaveCard(ctx, card, itemID); err != nil {
			return err
		}
	}
	return nil
}

// GetCard returns one card by id, or nil if absent.
func (m *Memory) GetCard(_ context.Context, cardID string) (*model.ClaimCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	card, ok := m.cards[cardID]
	if !ok {
		return nil, nil
	}
	return &card, nil
}

// GetCardsForItem returns the item's cards in insertion order.
func (m *Memory) GetCardsForItem(_ context.Context, itemID string) ([]model.ClaimCard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byItem[itemID]
	cards := make([]model.ClaimCard, 0, len(ids))
	for _, id := range ids {
		if card, ok := m.cards[id]; ok {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

// DeleteCard removes a card and all item links to it.
func (m *Memory) DeleteCard(_ context.Context, cardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.cards, cardID)
	for itemID, ids := range m.byItem {
		m.byItem[itemID] = slices.DeleteFunc(ids, func(id string) bool { return id == cardID })
	}
	return nil
}
