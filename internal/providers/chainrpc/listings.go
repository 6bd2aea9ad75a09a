package chainrpc

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/domain"
)

// raydiumAMMProgram is the pool-creation program whose logs announce new
// listings.
const raydiumAMMProgram = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"

// ListingEvent is a new-pool observation from the log stream.
type ListingEvent struct {
	Token      domain.TokenAddress
	Signature  string
	ObservedAt time.Time
}

// SubscribeNewListings opens a websocket log subscription and surfaces
// new-pool events as a channel the scheduler can merge with its polling
// feed. The channel closes when ctx is cancelled; connection drops are
// retried with a capped backoff.
func (c *Client) SubscribeNewListings(ctx context.Context) <-chan ListingEvent {
	out := make(chan ListingEvent, 64)
	go func() {
		defer close(out)
		backoff := time.Second
		for {
			if err := c.streamLogs(ctx, out); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Debug().Err(err).Dur("retry_in", backoff).Msg("listing stream dropped")
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	}()
	return out
}

func (c *Client) streamLogs(ctx context.Context, out chan<- ListingEvent) error {
	wsURL := c.config.WSURL + "/?api-key=" + url.QueryEscape(c.config.APIKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	sub := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  "logsSubscribe",
		Params: []any{
			map[string]any{"mentions": []string{raydiumAMMProgram}},
			map[string]string{"commitment": "confirmed"},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	// Close the connection when the context ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var note struct {
			Method string `json:"method"`
			Params struct {
				Result struct {
					Value struct {
						Signature string   `json:"signature"`
						Logs      []string `json:"logs"`
					} `json:"value"`
				} `json:"result"`
			} `json:"params"`
		}
		if err := json.Unmarshal(raw, &note); err != nil || note.Method != "logsNotification" {
			continue
		}

		if !mentionsPoolInit(note.Params.Result.Value.Logs) {
			continue
		}

		token, ok := c.resolveListingMint(ctx, note.Params.Result.Value.Signature)
		if !ok {
			continue
		}
		select {
		case out <- ListingEvent{
			Token:      token,
			Signature:  note.Params.Result.Value.Signature,
			ObservedAt: time.Now(),
		}:
		default:
			// Scheduler is behind; polling will pick the token up anyway.
		}
	}
}

func mentionsPoolInit(logs []string) bool {
	for _, l := range logs {
		if strings.Contains(l, "initialize2") || strings.Contains(l, "InitializeInstruction") {
			return true
		}
	}
	return false
}

// wrappedSOLMint is the quote side of nearly every new pool.
const wrappedSOLMint = "So11111111111111111111111111111111111111112"

// resolveListingMint fetches the pool-init transaction and picks the new
// token's mint from its post-transaction balances. Pool inits are rare
// enough that the extra RPC call stays well inside the rate budget.
func (c *Client) resolveListingMint(ctx context.Context, signature string) (domain.TokenAddress, bool) {
	fetchCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tx, err := c.GetTransaction(fetchCtx, signature)
	if err != nil {
		log.Debug().Err(err).Str("signature", signature).Msg("listing mint lookup failed")
		return "", false
	}
	if tx.Failed {
		return "", false
	}
	return listingMint(tx.TokenMints)
}

// listingMint picks the non-quote mint from a pool-init balance set.
func listingMint(mints []string) (domain.TokenAddress, bool) {
	for _, m := range mints {
		if m == wrappedSOLMint {
			continue
		}
		addr := domain.TokenAddress(m)
		if addr.Validate() == nil {
			return addr, true
		}
	}
	return "", false
}
