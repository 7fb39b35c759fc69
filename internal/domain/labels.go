package domain

// IntentSignal classifies the smoothed Intent Index.
type IntentSignal string

const (
	IntentSellingPressure IntentSignal = "selling_pressure"
	IntentNeutral         IntentSignal = "neutral"
	IntentAccumulation    IntentSignal = "accumulation"
)

// Intent classification thresholds. Both boundary values are neutral.
const (
	IntentSellingBelow     = 30
	IntentAccumulationOver = 70
)

// ClassifyIntent maps an Intent Index value to its signal label.
func ClassifyIntent(intent int) IntentSignal {
	switch {
	case intent < IntentSellingBelow:
		return IntentSellingPressure
	case intent > IntentAccumulationOver:
		return IntentAccumulation
	default:
		return IntentNeutral
	}
}

// MomentumSignal classifies activity momentum.
type MomentumSignal string

const (
	MomentumStrongAcceleration MomentumSignal = "strong_acceleration"
	MomentumAcceleration       MomentumSignal = "acceleration"
	MomentumNeutral            MomentumSignal = "neutral"
	MomentumDeceleration       MomentumSignal = "deceleration"
	MomentumStrongDeceleration MomentumSignal = "strong_deceleration"
)

// ClassifyMomentum maps a momentum value to its label.
// Bands: (20,inf) (10,20] [-10,10] [-20,-10) (-inf,-20).
func ClassifyMomentum(m float64) MomentumSignal {
	switch {
	case m > 20:
		return MomentumStrongAcceleration
	case m > 10:
		return MomentumAcceleration
	case m >= -10:
		return MomentumNeutral
	case m >= -20:
		return MomentumDeceleration
	default:
		return MomentumStrongDeceleration
	}
}

// ConfidenceLevel classifies the confidence score.
type ConfidenceLevel string

const (
	ConfidenceVeryHigh ConfidenceLevel = "very_high"
	ConfidenceHigh     ConfidenceLevel = "high"
	ConfidenceModerate ConfidenceLevel = "moderate"
	ConfidenceLow      ConfidenceLevel = "low"
)

// ClassifyConfidence maps a 0..100 confidence score to its level.
// Bands: (80,100] [60,80] [40,60) [0,40).
func ClassifyConfidence(score float64) ConfidenceLevel {
	switch {
	case score > 80:
		return ConfidenceVeryHigh
	case score >= 60:
		return ConfidenceHigh
	case score >= 40:
		return ConfidenceModerate
	default:
		return ConfidenceLow
	}
}

// Direction is the side a backtest signal trades.
type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// RegimeLabel names a qualitative market regime.
type RegimeLabel string

const (
	RegimeBullMarket          RegimeLabel = "bull_market"          // high activity, high intent
	RegimeDistributionPhase   RegimeLabel = "distribution_phase"   // high activity, low intent
	RegimeStealthAccumulation RegimeLabel = "stealth_accumulation" // low activity, high intent
	RegimeCapitulation        RegimeLabel = "capitulation"         // low activity, low intent
)

// LabelRegime maps activity/intent levels to a regime label.
func LabelRegime(highActivity, highIntent bool) RegimeLabel {
	switch {
	case highActivity && highIntent:
		return RegimeBullMarket
	case highActivity:
		return RegimeDistributionPhase
	case highIntent:
		return RegimeStealthAccumulation
	default:
		return RegimeCapitulation
	}
}
