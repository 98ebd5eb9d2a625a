// Package judge classifies the evidential relationship between one claim
// and one source. Judging is optional: with no judge configured the
// pipeline falls back to heuristic evidence mapping and verdicts stay in
// the mixed/insufficient range.
package judge

import (
	"context"

	"github.com/ppiankov/claimforge/internal/model"
)

// Result is one judgment: a polarity, a short rationale, and a
// confidence score in [0,1].
type Result struct {
	Polarity  model.Polarity `json:"polarity"`
	Rationale string         `json:"rationale"`
	Score     float64        `json:"score"`
}

// Judge grades one (claim, source) pair. The contract defines no retry:
// a failing call is the caller's to handle, and the pipeline drops the
// item from the evidence set.
type Judge interface {
	// Name identifies the judge for provenance, e.g. "deepseek:deepseek-chat".
	Name() string

	Judge(ctx context.Context, claim string, source model.SourceDetails) (Result, error)
}
