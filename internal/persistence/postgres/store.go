// Package postgres is the production SignalStore. Signals are stored as a
// JSONB payload plus extracted gating-factor columns so the threshold
// optimizer can query without unmarshalling every row.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/memerun/memerun/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
    id              TEXT PRIMARY KEY,
    token_address   TEXT NOT NULL,
    track           TEXT NOT NULL,
    onchain_score   DOUBLE PRECISION NOT NULL,
    momentum_score  DOUBLE PRECISION NOT NULL,
    safety_score    INTEGER NOT NULL,
    bundle_risk     INTEGER NOT NULL,
    liquidity       DOUBLE PRECISION NOT NULL,
    top10_pct       DOUBLE PRECISION NOT NULL,
    payload         JSONB NOT NULL,
    generated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_signals_token ON signals (token_address);
CREATE INDEX IF NOT EXISTS idx_signals_generated ON signals (generated_at);

CREATE TABLE IF NOT EXISTS signal_outcomes (
    signal_id   TEXT PRIMARY KEY REFERENCES signals(id),
    win         BOOLEAN NOT NULL,
    return_pct  DOUBLE PRECISION NOT NULL,
    resolved_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS thresholds (
    id         INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
    payload    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
`

// Store is the sqlx-backed SignalStore.
type Store struct {
	db *sqlx.DB
}

// Open connects, pings, and ensures the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	log.Info().Msg("signal store connected")
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// HasOpenPosition reports whether the token has a signal without a
// recorded outcome.
func (s *Store) HasOpenPosition(ctx context.Context, addr domain.TokenAddress) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM signals sig
			LEFT JOIN signal_outcomes o ON o.signal_id = sig.id
			WHERE sig.token_address = $1 AND o.signal_id IS NULL
		)`, string(addr))
	if err != nil {
		return false, fmt.Errorf("open position query: %w", err)
	}
	return exists, nil
}

// RecordSignal inserts the signal and returns its id, assigning one if
// absent.
func (s *Store) RecordSignal(ctx context.Context, sig *domain.Signal) (string, error) {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	payload, err := json.Marshal(sig)
	if err != nil {
		return "", fmt.Errorf("marshal signal: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO signals
			(id, token_address, track, onchain_score, momentum_score,
			 safety_score, bundle_risk, liquidity, top10_pct, payload, generated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		sig.ID,
		string(sig.TokenMetrics.Address),
		string(sig.Track),
		sig.OnChainScore.Total,
		sig.Momentum.TotalScore,
		sig.Safety.SafetyScore,
		sig.Bundle.RiskScore,
		sig.TokenMetrics.Liquidity,
		sig.TokenMetrics.Top10Concentration,
		payload,
		sig.GeneratedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert signal: %w", err)
	}
	return sig.ID, nil
}

// RecordOutcome upserts the outcome for a signal.
func (s *Store) RecordOutcome(ctx context.Context, outcome domain.SignalOutcome) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signal_outcomes (signal_id, win, return_pct, resolved_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (signal_id) DO UPDATE
		SET win = EXCLUDED.win, return_pct = EXCLUDED.return_pct,
		    resolved_at = EXCLUDED.resolved_at`,
		outcome.SignalID, outcome.Win, outcome.ReturnPct, outcome.ResolvedAt)
	if err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

type signalRow struct {
	Payload    []byte          `db:"payload"`
	Win        sql.NullBool    `db:"win"`
	ReturnPct  sql.NullFloat64 `db:"return_pct"`
	ResolvedAt sql.NullTime    `db:"resolved_at"`
	SignalID   string          `db:"id"`
}

// GetRecentSignalsWithOutcomes returns signals generated within the window
// joined with their outcomes where present.
func (s *Store) GetRecentSignalsWithOutcomes(ctx context.Context, window time.Duration) ([]domain.SignalRow, error) {
	var raw []signalRow
	err := s.db.SelectContext(ctx, &raw, `
		SELECT sig.id, sig.payload, o.win, o.return_pct, o.resolved_at
		FROM signals sig
		LEFT JOIN signal_outcomes o ON o.signal_id = sig.id
		WHERE sig.generated_at >= $1
		ORDER BY sig.generated_at`,
		time.Now().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("recent signals query: %w", err)
	}

	rows := make([]domain.SignalRow, 0, len(raw))
	for _, r := range raw {
		var sig domain.Signal
		if err := json.Unmarshal(r.Payload, &sig); err != nil {
			log.Warn().Err(err).Str("signal_id", r.SignalID).Msg("skipping undecodable signal payload")
			continue
		}
		row := domain.SignalRow{Signal: sig}
		if r.Win.Valid {
			row.Outcome = &domain.SignalOutcome{
				SignalID:   r.SignalID,
				Win:        r.Win.Bool,
				ReturnPct:  r.ReturnPct.Float64,
				ResolvedAt: r.ResolvedAt.Time,
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadThresholds returns the persisted thresholds row, nil when none has
// been saved yet.
func (s *Store) LoadThresholds(ctx context.Context) (*domain.Thresholds, error) {
	var payload []byte
	err := s.db.GetContext(ctx, &payload, `SELECT payload FROM thresholds WHERE id = 1`)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}
	var t domain.Thresholds
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, fmt.Errorf("decode thresholds: %w", err)
	}
	return &t, nil
}

// PersistThresholds upserts the singleton thresholds row.
func (s *Store) PersistThresholds(ctx context.Context, t domain.Thresholds) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal thresholds: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO thresholds (id, payload, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		payload, time.Now())
	if err != nil {
		return fmt.Errorf("persist thresholds: %w", err)
	}
	return nil
}
