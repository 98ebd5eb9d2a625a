// Package storage persists claim cards. The pipeline saves each card as
// it is produced and again in a bulk call at the end of a run, so save
// operations must be idempotent upserts keyed by the card id.
package storage

import (
	"context"

	"github.com/ppiankov/claimforge/internal/model"
)

// Adapter is the minimal persistence contract the pipeline consumes.
type Adapter interface {
	// Name identifies the adapter, e.g. "memory" or "sqlite".
	Name() string

	SaveCard(ctx context.Context, card model.ClaimCard, itemID string) error
	SaveCardsForItem(ctx context.Context, cards []model.ClaimCard, itemID string) error
}

// Store extends Adapter with the read/delete operations used by outer
// field resolvers and the refresh CLI.
type Store interface {
	Adapter

	GetCard(ctx context.Context, cardID string) (*model.ClaimCard, error)
	GetCardsForItem(ctx context.Context, itemID string) ([]model.ClaimCard, error)
	DeleteCard(ctx context.Context, cardID string) error
}
