package scoring

import "github.com/memerun/memerun/internal/domain"

// socialBonusCap bounds the total social adjustment.
const socialBonusCap = 25

// SocialBonus converts the aggregator's profile view into a capped score
// adjustment. Presence of real socials is weak but cheap evidence of an
// actual team.
func SocialBonus(info *domain.TokenInfo) float64 {
	if info == nil {
		return 0
	}
	bonus := 0.0
	if info.Twitter != "" {
		bonus += 7
	}
	if info.Telegram != "" {
		bonus += 4
	}
	if info.Website != "" {
		bonus += 3
	}
	if info.Discord != "" {
		bonus += 1
	}
	if info.HasPaidProfile {
		bonus += 5
	}
	if info.BoostCount > 0 {
		b := float64(info.BoostCount)
		if b > 3 {
			b = 3
		}
		bonus += b
	}
	if len(info.Description) >= 40 {
		bonus += 2
	}
	if bonus > socialBonusCap {
		bonus = socialBonusCap
	}
	return bonus
}

// AdjustedTotal applies the social bonus to a composite total, capped at
// 100.
func AdjustedTotal(score domain.OnChainScore, bonus float64) float64 {
	total := score.Total + bonus
	if total > 100 {
		total = 100
	}
	return total
}
