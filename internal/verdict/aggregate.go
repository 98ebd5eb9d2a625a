// Package verdict turns a weighted evidence set into a categorical
// verdict plus confidence. Aggregation is pure and deterministic.
package verdict

import (
	"math"

	"github.com/ppiankov/claimforge/internal/model"
)

// Aggregation constants. Tunable in principle, but cards are compared
// across runs, so re-grading must stay stable: changing these breaks
// compatibility with every stored card.
const (
	// supportThreshold and contradictThreshold define "decisive": one
	// polarity must carry more than 72% of the score weight. Together
	// with signalFloor they create a dead zone between "mostly mixed"
	// and "decisive" that lands on VerdictMixed.
	supportThreshold    = 0.72
	contradictThreshold = 0.72

	// signalFloor: below 35% combined support+contradict weight the
	// evidence is dominated by mixed polarity with little clear signal.
	signalFloor = 0.35

	// confidenceCap keeps the pipeline from ever reporting full certainty.
	confidenceCap = 0.95

	// Confidence blend weights: mean evidence score, evidence quantity
	// (diminishing returns after 6 items), and decisiveness.
	weightAvgScore     = 0.55
	weightQuantity     = 0.25
	weightDecisiveness = 0.20

	quantitySaturation = 6
)

// Outcome is the aggregator's result for one claim.
type Outcome struct {
	Verdict    model.Verdict
	Confidence float64
}

// Aggregate derives a verdict and confidence from graded evidence.
//
// Evidence with polarity supports/contradicts/mixed counts as relevant;
// irrelevant items only matter when nothing else is present, in which
// case their mean score (floored at 0.1) becomes the confidence of an
// insufficient verdict.
func Aggregate(evidence []model.EvidenceItem) Outcome {
	if len(evidence) == 0 {
		return Outcome{Verdict: model.VerdictInsufficient, Confidence: 0}
	}

	var relevant []model.EvidenceItem
	for _, e := range evidence {
		switch e.Polarity {
		case model.PolaritySupports, model.PolarityContradicts, model.PolarityMixed:
			relevant = append(relevant, e)
		}
	}

	if len(relevant) == 0 {
		sum := 0.0
		for _, e := range evidence {
			sum += e.Score
		}
		avg := sum / float64(len(evidence))
		return Outcome{Verdict: model.VerdictInsufficient, Confidence: math.Max(0.1, avg)}
	}

	var sW, cW, mW float64
	for _, e := range relevant {
		switch e.Polarity {
		case model.PolaritySupports:
			sW += e.Score
		case model.PolarityContradicts:
			cW += e.Score
		case model.PolarityMixed:
			mW += e.Score
		}
	}

	totalW := sW + cW + mW
	if totalW == 0 {
		totalW = 1e-9
	}
	supportRatio := sW / totalW
	contradictRatio := cW / totalW

	var v model.Verdict
	switch {
	case supportRatio > supportThreshold:
		v = model.VerdictSupported
	case contradictRatio > contradictThreshold:
		v = model.VerdictContradicted
	case supportRatio+contradictRatio < signalFloor:
		v = model.VerdictInsufficient
	default:
		v = model.VerdictMixed
	}

	sum := 0.0
	for _, e := range relevant {
		sum += e.Score
	}
	avgScore := sum / float64(len(relevant))
	quantity := math.Min(1, float64(len(relevant))/quantitySaturation)
	decisiveness := math.Max(supportRatio, contradictRatio)

	confidence := math.Min(confidenceCap,
		avgScore*weightAvgScore+quantity*weightQuantity+decisiveness*weightDecisiveness)

	return Outcome{Verdict: v, Confidence: confidence}
}
