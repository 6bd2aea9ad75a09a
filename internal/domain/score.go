package domain

// Recommendation is the scorer's categorical output.
type Recommendation string

const (
	StrongBuy   Recommendation = "STRONG_BUY"
	Buy         Recommendation = "BUY"
	Watch       Recommendation = "WATCH"
	Avoid       Recommendation = "AVOID"
	StrongAvoid Recommendation = "STRONG_AVOID"
)

// Confidence grades how much of the composite was computed from real data
// rather than permissive defaults.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// ScoreComponents are the weighted slices of the on-chain composite.
// Each is already scaled into its budget.
type ScoreComponents struct {
	Momentum        float64 `json:"momentum"`         // 0..30
	Safety          float64 `json:"safety"`           // 0..25
	BundleSafety    float64 `json:"bundle_safety"`    // 0..20
	MarketStructure float64 `json:"market_structure"` // 0..15
	Timing          float64 `json:"timing"`           // 0..10
}

// OnChainScore is the weighted composite used as the primary gating value.
type OnChainScore struct {
	Total          float64         `json:"total"` // 0..100
	Components     ScoreComponents `json:"components"`
	Recommendation Recommendation  `json:"recommendation"`
	RiskLevel      RiskLevel       `json:"risk_level"`
	BullishSignals []string        `json:"bullish_signals,omitempty"`
	BearishSignals []string        `json:"bearish_signals,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
	Confidence     Confidence      `json:"confidence"`
}
