package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ppiankov/claimforge/internal/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS claim_cards (
	id          TEXT PRIMARY KEY,
	claim       TEXT NOT NULL,
	scope       TEXT,
	topic       TEXT,
	verdict     TEXT NOT NULL,
	confidence  INTEGER NOT NULL,
	evidence    TEXT NOT NULL,
	queries     TEXT NOT NULL,
	provenance  TEXT NOT NULL,
	notes       TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS item_claims (
	item_id    TEXT NOT NULL,
	claim_id   TEXT NOT NULL,
	created_at TEXT NOT NULL,
	PRIMARY KEY (item_id, claim_id)
);
`

// SQLite persists cards in a local SQLite database. Nested structures
// (scope, evidence, queries, provenance) are stored as JSON blobs, and
// confidence is stored as an integer 0-100.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and migrates) a card database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Name identifies the adapter.
func (s *SQLite) Name() string {
	return "sqlite"
}

// SaveCard upserts one card and links it to the item.
func (s *SQLite) SaveCard(ctx context.Context, card model.ClaimCard, itemID string) error {
	scope, err := marshalNullable(card.Scope)
	if err != nil {
		return fmt.Errorf("serialize scope: %w", err)
	}
	evidence, err := json.Marshal(card.Evidence)
	if err != nil {
		return fmt.Errorf("serialize evidence: %w", err)
	}
	queries, err := json.Marshal(card.Queries)
	if err != nil {
		return fmt.Errorf("serialize queries: %w", err)
	}
	provenance, err := json.Marshal(card.Provenance)
	if err != nil {
		return fmt.Errorf("serialize provenance: %w", err)
	}

	confidence := int(math.Round(card.Confidence * 100))

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claim_cards (id, claim, scope, topic, verdict, confidence, evidence, queries, provenance, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			claim      = excluded.claim,
			scope      = excluded.scope,
			topic      = excluded.topic,
			verdict    = excluded.verdict,
			confidence = excluded.confidence,
			evidence   = excluded.evidence,
			queries    = excluded.queries,
			provenance = excluded.provenance,
			notes      = excluded.notes,
			updated_at = excluded.updated_at`,
		card.ID, card.Claim, scope, nullable(card.Topic), string(card.Verdict), confidence,
		string(evidence), string(queries), string(provenance), nullable(card.Notes),
		card.CreatedAt.UTC().Format(time.RFC3339Nano), card.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert card: %w", err)
	}

	if itemID != "" {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO item_claims (item_id, claim_id, created_at)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING`,
			itemID, card.ID, time.Now().UTC().Format(time.RFC3339Nano))
		if err != nil {
			return fmt.Errorf("link card to item: %w", err)
		}
	}

	return nil
}

// SaveCardsForItem upserts all cards for an item.
func (s *SQLite) SaveCardsForItem(ctx context.Context, cards []model.ClaimCard, itemID string) error {
	for _, card := range cards {
		if err := s.SaveCard(ctx, card, itemID); err != nil {
			return err
		}
	}
	return nil
}

// GetCard returns one card by id, or nil if absent.
func (s *SQLite) GetCard(ctx context.Context, cardID string) (*model.ClaimCard, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, claim, scope, topic, verdict, confidence, evidence, queries, provenance, notes, created_at, updated_at FROM claim_cards WHERE id = ? LIMIT 1`, cardID)

	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return card, nil
}

// GetCardsForItem returns the item's cards in link order.
func (s *SQLite) GetCardsForItem(ctx context.Context, itemID string) ([]model.ClaimCard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cc.id, cc.claim, cc.scope, cc.topic, cc.verdict, cc.confidence, cc.evidence, cc.queries, cc.provenance, cc.notes, cc.created_at, cc.updated_at
		FROM claim_cards cc
		INNER JOIN item_claims ic ON ic.claim_id = cc.id
		WHERE ic.item_id = ?
		ORDER BY ic.created_at, cc.id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cards []model.ClaimCard
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

// DeleteCard removes a card and its item links.
func (s *SQLite) DeleteCard(ctx context.Context, cardID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM item_claims WHERE claim_id = ?`, cardID); err != nil {
		return fmt.Errorf("unlink card: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM claim_cards WHERE id = ?`, cardID); err != nil {
		return fmt.Errorf("delete card: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*model.ClaimCard, error) {
	var (
		card                 model.ClaimCard
		scope, topic, notes  sql.NullString
		confidence           int
		verdict              string
		evidence             string
		queries              string
		provenance           string
		createdAt, updatedAt string
	)

	err := row.Scan(&card.ID, &card.Claim, &scope, &topic, &verdict, &confidence,
		&evidence, &queries, &provenance, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	card.Verdict = model.Verdict(verdict)
	card.Confidence = float64(confidence) / 100
	card.Topic = topic.String
	card.Notes = notes.String

	if scope.Valid && scope.String != "" {
		card.Scope = &model.ClaimScope{}
		if err := json.Unmarshal([]byte(scope.String), card.Scope); err != nil {
			return nil, fmt.Errorf("parse scope: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(evidence), &card.Evidence); err != nil {
		return nil, fmt.Errorf("parse evidence: %w", err)
	}
	if err := json.Unmarshal([]byte(queries), &card.Queries); err != nil {
		return nil, fmt.Errorf("parse queries: %w", err)
	}
	if err := json.Unmarshal([]byte(provenance), &card.Provenance); err != nil {
		return nil, fmt.Errorf("parse provenance: %w", err)
	}
	if card.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if card.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &card, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func marshalNullable(v *model.ClaimScope) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
