package domain

// FlagDataMissing marks a report built from permissive defaults because the
// upstream source returned nothing. Downstream treats such scores as
// low-confidence rather than blocking on them.
const FlagDataMissing = "data_missing"

// SafetyReport captures contract- and distribution-level safety facts.
type SafetyReport struct {
	MintAuthorityRevoked   bool     `json:"mint_authority_revoked"`
	FreezeAuthorityRevoked bool     `json:"freeze_authority_revoked"`
	MetadataMutable        bool     `json:"metadata_mutable"`
	SafetyScore            int      `json:"safety_score"` // 0..100
	DeployerHoldingPct     float64  `json:"deployer_holding_pct"`
	Top10Concentration     float64  `json:"top10_concentration"`
	InsiderRiskScore       int      `json:"insider_risk_score"`
	SameBlockBuyers        int      `json:"same_block_buyers"`
	DeployerFundedBuyers   int      `json:"deployer_funded_buyers"`
	Flags                  []string `json:"flags,omitempty"`
}

// HasFlag reports whether the given symbolic flag is present.
func (r SafetyReport) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// PermissiveSafetyReport is the report returned when upstream data is
// unavailable: authorities assumed revoked, neutral score, explicit flag.
func PermissiveSafetyReport() SafetyReport {
	return SafetyReport{
		MintAuthorityRevoked:   true,
		FreezeAuthorityRevoked: true,
		SafetyScore:            50,
		Flags:                  []string{FlagDataMissing},
	}
}

// RiskLevel grades a token's aggregate risk.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// BundleReport summarizes early-block clustering / insider risk.
type BundleReport struct {
	RiskLevel            RiskLevel `json:"risk_level"`
	RiskScore            int       `json:"risk_score"` // 0..100
	ClusteredWalletCount int       `json:"clustered_wallet_count"`
	BundledSupplyPct     float64   `json:"bundled_supply_pct"`
	HasRugHistory        bool      `json:"has_rug_history"` // no deployer-history source wired yet; always false
	Flags                []string  `json:"flags,omitempty"`
}
