package domain

// Thresholds are the dynamic gating bounds. Values are read through an
// atomic snapshot taken at pipeline entry; a concurrent apply never affects
// an in-flight evaluation.
type Thresholds struct {
	MinMomentumScore      float64 `json:"min_momentum_score" yaml:"min_momentum_score"`
	MinOnChainScore       float64 `json:"min_onchain_score" yaml:"min_onchain_score"`
	MinSafetyScore        float64 `json:"min_safety_score" yaml:"min_safety_score"`
	MaxBundleRiskScore    float64 `json:"max_bundle_risk_score" yaml:"max_bundle_risk_score"`
	MinLiquidity          float64 `json:"min_liquidity" yaml:"min_liquidity"`
	MaxTop10Concentration float64 `json:"max_top10_concentration" yaml:"max_top10_concentration"`
	LearningMode          bool    `json:"learning_mode" yaml:"learning_mode"`
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinMomentumScore:      20,
		MinOnChainScore:       30,
		MinSafetyScore:        25,
		MaxBundleRiskScore:    60,
		MinLiquidity:          2000,
		MaxTop10Concentration: 85,
		LearningMode:          true,
	}
}
