// Package alerts delivers emitted signals to an external sink. The core
// formats the structured record; rendering human-readable text is the
// sink's concern.
package alerts

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/domain"
	"github.com/memerun/memerun/internal/infrastructure/httpclient"
)

// Notifier publishes a signal. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Publish(ctx context.Context, sig *domain.Signal) error
}

// LogNotifier writes signals to the structured log only. The default sink
// when no webhook is configured.
type LogNotifier struct{}

func (LogNotifier) Publish(ctx context.Context, sig *domain.Signal) error {
	log.Info().
		Str("signal_id", sig.ID).
		Str("token", sig.TokenMetrics.Address.Short()).
		Str("ticker", sig.TokenMetrics.Ticker).
		Str("track", string(sig.Track)).
		Float64("score", sig.OnChainScore.Total).
		Str("recommendation", string(sig.OnChainScore.Recommendation)).
		Float64("position_size", sig.SuggestedPositionSize).
		Msg("signal emitted")
	return nil
}

// WebhookNotifier POSTs the signal JSON to a configured endpoint.
type WebhookNotifier struct {
	pool *httpclient.Pool
	url  string
}

// NewWebhookNotifier creates a webhook sink over the shared HTTP pool.
func NewWebhookNotifier(pool *httpclient.Pool, url string) *WebhookNotifier {
	return &WebhookNotifier{pool: pool, url: url}
}

func (w *WebhookNotifier) Publish(ctx context.Context, sig *domain.Signal) error {
	if err := w.pool.PostJSON(ctx, w.url, sig, nil); err != nil {
		return fmt.Errorf("webhook publish: %w", err)
	}
	return nil
}

// Fanout publishes to every sink, returning the first error after all
// sinks have been tried. A failed sink never suppresses the others.
type Fanout []Notifier

func (f Fanout) Publish(ctx context.Context, sig *domain.Signal) error {
	var firstErr error
	for _, n := range f {
		if err := n.Publish(ctx, sig); err != nil {
			log.Warn().Err(err).Str("signal_id", sig.ID).Msg("notifier sink failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
