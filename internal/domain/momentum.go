package domain

// MomentumComponents are the four 0..25 component scores that sum into the
// momentum total.
type MomentumComponents struct {
	BuyPressure    float64 `json:"buy_pressure"`
	VolumeVelocity float64 `json:"volume_velocity"`
	TradeQuality   float64 `json:"trade_quality"`
	HolderGrowth   float64 `json:"holder_growth"`
}

// MomentumSnapshot is the short-horizon trading pressure view of a token.
type MomentumSnapshot struct {
	BuySellRatio      float64            `json:"buy_sell_ratio"`
	UniqueBuyers5m    int                `json:"unique_buyers_5m"`
	NetBuyPressureUSD float64            `json:"net_buy_pressure_usd"`
	HolderGrowthRate  float64            `json:"holder_growth_rate"` // holders per minute
	Components        MomentumComponents `json:"components"`
	TotalScore        float64            `json:"total_score"` // 0..100
}
