package domain

// Tier is the market-cap band a token falls in. The band alone decides the
// tier; liquidity and safety floors hang off it.
type Tier string

const (
	TierMicro       Tier = "MICRO"
	TierRising      Tier = "RISING"
	TierEmerging    Tier = "EMERGING"
	TierGraduated   Tier = "GRADUATED"
	TierEstablished Tier = "ESTABLISHED"
	TierUnknown     Tier = "UNKNOWN"
)

// TierFor maps a market cap in USD to its band. Bands are half-open
// [lower, upper).
func TierFor(marketCap float64) Tier {
	switch {
	case marketCap >= 50_000 && marketCap < 500_000:
		return TierMicro
	case marketCap >= 500_000 && marketCap < 8_000_000:
		return TierRising
	case marketCap >= 8_000_000 && marketCap < 20_000_000:
		return TierEmerging
	case marketCap >= 20_000_000 && marketCap < 50_000_000:
		return TierGraduated
	case marketCap >= 50_000_000 && marketCap < 150_000_000:
		return TierEstablished
	default:
		return TierUnknown
	}
}
