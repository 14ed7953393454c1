package service

import (
	"math"

	"github.com/Harshitk-cp/doubtsolver/internal/domain"
)

const (
	// DefaultModelConfidence is assumed when the model reports none.
	DefaultModelConfidence = 85.0

	aiWeight         = 0.35
	aiWeightVerified = 0.50

	contextCap           = 25.0
	selectedTextPoints   = 12.0
	generalContextPoints = 8.0
	visualContextPoints  = 5.0
	responseQualityMax   = 20.0
	formattingMax        = 20.0
	verifiedSourceBonus  = 10.0
)

// Reliability labels.
const (
	ReliabilityHigh     = "High"
	ReliabilityGood     = "Good"
	ReliabilityModerate = "Moderate"
	ReliabilityLow      = "Low"
)

// ConfidenceParams are the signals known about one generated answer.
// ModelConfidence nil means DefaultModelConfidence.
type ConfidenceParams struct {
	ModelConfidence   *float64
	HasGeneralContext bool
	HasSelectedText   bool
	HasVisualContext  bool
	VisionMode        bool
	ResponseLength    int
	FormattingScore   int
	ContentType       string
	VerifiedSource    bool
}

// ScoreConfidence combines the signals into a 0..100 score. The weights are
// fixed policy.
func ScoreConfidence(p ConfidenceParams) (int, domain.ConfidenceBreakdown) {
	modelConf := DefaultModelConfidence
	if p.ModelConfidence != nil {
		modelConf = *p.ModelConfidence
	}
	modelConf = clamp(modelConf, 0, 100)

	b := domain.ConfidenceBreakdown{
		ModelConfidence: modelConf,
		ResponseLength:  p.ResponseLength,
		VisionMode:      p.VisionMode,
		ContentType:     p.ContentType,
		Signals: domain.ContextSignals{
			SelectedText:  p.HasSelectedText,
			GeneralText:   p.HasGeneralContext,
			VisualContext: p.HasVisualContext,
		},
	}

	weight := aiWeight
	if p.VerifiedSource {
		weight = aiWeightVerified
	}
	b.AI = domain.ComponentScore{Score: modelConf * weight, Weight: weight, Max: 100 * weight}

	var ctxPoints float64
	if p.HasSelectedText {
		ctxPoints += selectedTextPoints
	}
	if p.HasGeneralContext {
		ctxPoints += generalContextPoints
	}
	if p.HasVisualContext {
		ctxPoints += visualContextPoints
	}
	b.Context = domain.ComponentScore{Score: math.Min(ctxPoints, contextCap), Weight: 1, Max: contextCap}

	b.ResponseQuality = domain.ComponentScore{Score: responseQualityPoints(p.ResponseLength), Weight: 1, Max: responseQualityMax}

	formatting := clamp(float64(p.FormattingScore), 0, 100)
	b.Formatting = domain.ComponentScore{Score: formatting / 100 * formattingMax, Weight: formattingMax / 100, Max: formattingMax}

	var bonus float64
	if p.VerifiedSource {
		bonus = verifiedSourceBonus
	}
	b.VerifiedBonus = domain.ComponentScore{Score: bonus, Weight: 1, Max: verifiedSourceBonus}

	total := b.AI.Score + b.Context.Score + b.ResponseQuality.Score + b.Formatting.Score + b.VerifiedBonus.Score
	final := int(clamp(math.Round(total), 0, 100))

	b.FinalScore = final
	b.Reliability = ReliabilityLabel(final)
	return final, b
}

func responseQualityPoints(length int) float64 {
	switch {
	case length >= 400:
		return 20
	case length >= 200:
		return 15
	case length >= 100:
		return 10
	default:
		return 5
	}
}

// ReliabilityLabel buckets a final score.
func ReliabilityLabel(score int) string {
	switch {
	case score >= 85:
		return ReliabilityHigh
	case score >= 70:
		return ReliabilityGood
	case score >= 50:
		return ReliabilityModerate
	default:
		return ReliabilityLow
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
