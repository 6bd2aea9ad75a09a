package scanner

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/domain"
)

const perSourceLimit = 50

// AggregatorFeed is the market-aggregator slice of the candidate feed.
type AggregatorFeed interface {
	GetNewPairs(ctx context.Context, limit int) ([]domain.Pair, error)
	GetTrending(ctx context.Context, limit int) ([]domain.TokenAddress, error)
}

// DirectoryFeed lists recently registered tokens.
type DirectoryFeed interface {
	GetRecentTokens(ctx context.Context, limit int) ([]domain.TokenAddress, error)
}

// Feed builds each cycle's candidate set. Pushed addresses (from the
// listing stream) go first, then the three polled sources in order, all
// deduplicated. Every source tolerates failure independently.
type Feed struct {
	aggregator AggregatorFeed
	directory  DirectoryFeed

	mu      sync.Mutex
	pending []domain.TokenAddress
}

// NewFeed creates the candidate feed.
func NewFeed(aggregator AggregatorFeed, directory DirectoryFeed) *Feed {
	return &Feed{aggregator: aggregator, directory: directory}
}

// Push queues an externally observed address for the next cycle.
func (f *Feed) Push(addr domain.TokenAddress) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending = append(f.pending, addr)
}

// Candidates drains the pushed queue and polls the three sources,
// returning a deduplicated list in arrival order.
func (f *Feed) Candidates(ctx context.Context) []domain.TokenAddress {
	f.mu.Lock()
	pushed := f.pending
	f.pending = nil
	f.mu.Unlock()

	seen := make(map[domain.TokenAddress]struct{})
	var out []domain.TokenAddress
	add := func(addr domain.TokenAddress) {
		if addr == "" {
			return
		}
		if _, dup := seen[addr]; dup {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	for _, addr := range pushed {
		add(addr)
	}

	if pairs, err := f.aggregator.GetNewPairs(ctx, perSourceLimit); err != nil {
		log.Warn().Err(err).Msg("new pairs source failed")
	} else {
		for _, p := range pairs {
			add(p.BaseAddress)
		}
	}

	if f.directory != nil {
		if recent, err := f.directory.GetRecentTokens(ctx, perSourceLimit); err != nil {
			log.Warn().Err(err).Msg("directory recent source failed")
		} else {
			for _, addr := range recent {
				add(addr)
			}
		}
	}

	if trending, err := f.aggregator.GetTrending(ctx, perSourceLimit); err != nil {
		log.Warn().Err(err).Msg("trending source failed")
	} else {
		for _, addr := range trending {
			add(addr)
		}
	}

	return out
}
