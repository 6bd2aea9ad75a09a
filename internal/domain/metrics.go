package domain

import "time"

// TriState represents a boolean fact that may be unknown upstream.
type TriState int

const (
	Unknown TriState = iota
	False
	True
)

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// TriStateOf converts a known boolean into a TriState.
func TriStateOf(b bool) TriState {
	if b {
		return True
	}
	return False
}

// TokenMetrics is the fused snapshot of a token at a point in time.
// It is composed by the acquisition facade from whichever providers
// responded; absent fields carry conservative defaults.
type TokenMetrics struct {
	Address TokenAddress `json:"address"`
	Ticker  string       `json:"ticker"`
	Name    string       `json:"name"`

	Price         float64 `json:"price"`
	MarketCap     float64 `json:"market_cap"`
	Volume24h     float64 `json:"volume_24h"`
	Liquidity     float64 `json:"liquidity"`
	VolumeMCRatio float64 `json:"volume_mc_ratio"`

	HolderCount        int     `json:"holder_count"`        // may be a pagination floor
	HolderChange1h     float64 `json:"holder_change_1h"`    // signed percent
	Top10Concentration float64 `json:"top10_concentration"` // percent 0..100

	TokenAgeMinutes float64  `json:"token_age_minutes"`
	LPLocked        TriState `json:"lp_locked"`

	FetchedAt time.Time `json:"fetched_at"`
}

// Pair is a liquidity-pool trading pair reported by the market aggregator.
type Pair struct {
	ChainID       string
	PairAddress   string
	BaseAddress   TokenAddress
	BaseTicker    string
	BaseName      string
	PriceUSD      float64
	LiquidityUSD  float64
	MarketCapUSD  float64
	Volume24hUSD  float64
	Volume1hUSD   float64
	Buys24h       int
	Sells24h      int
	Buys5m        int
	Sells5m       int
	PairCreatedAt time.Time
}

// HolderPage is a page of holder data from either holder source. Total may
// be a pagination floor (chain RPC) or authoritative (holder API).
type HolderPage struct {
	Total      int
	TotalIsCap bool
	TopHolders []Holder
}

// Holder is a single holder row with its share of supply.
type Holder struct {
	Owner   string
	Amount  float64
	Percent float64
}

// MintInfo is the parsed mint account from chain RPC.
type MintInfo struct {
	MintAuthority   string // empty when revoked
	FreezeAuthority string // empty when revoked
	Decimals        int
	Supply          float64
	IsInitialized   bool
}

// TokenInfo is the aggregator's profile view of a token.
type TokenInfo struct {
	HasPaidProfile bool
	BoostCount     int
	Description    string
	Twitter        string
	Telegram       string
	Discord        string
	Website        string
}

// CreationInfo locates a token's creation transaction.
type CreationInfo struct {
	Signature string
	BlockTime time.Time
	Slot      uint64
}
