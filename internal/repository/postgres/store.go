// Package postgres stores the giveaway state in PostgreSQL. Every Save
// replaces the three pieces inside one transaction.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"giveaway-bot/internal/domain/giveaway"
)

const counterName = "giveaway"

// undefinedTable is the SQLSTATE of a relation that does not exist yet.
const undefinedTable pq.ErrorCode = "42P01"

type Store struct {
	db  *sqlx.DB
	log zerolog.Logger
}

var _ giveaway.Store = (*Store)(nil)

func New(db *sqlx.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log}
}

type giveawayRow struct {
	ID     string `db:"id"`
	Record []byte `db:"record"`
}

func (s *Store) Load(ctx context.Context) (giveaway.Snapshot, error) {
	var snap giveaway.Snapshot

	var rows []giveawayRow
	const qGiveaways = `SELECT id, record FROM giveaways ORDER BY position`
	if err := s.db.SelectContext(ctx, &rows, qGiveaways); err != nil && !missingTable(err) {
		return snap, fmt.Errorf("load giveaways: %w", err)
	}
	gs, err := decodeRows(rows)
	if err != nil {
		s.log.Warn().Err(err).Str("table", "giveaways").Msg("giveaways unreadable, starting with none")
	} else {
		snap.Giveaways = gs
	}

	var image sql.NullString
	const qSettings = `SELECT global_image FROM giveaway_settings WHERE id = 1`
	switch err := s.db.GetContext(ctx, &image, qSettings); {
	case errors.Is(err, sql.ErrNoRows), missingTable(err):
	case err != nil:
		return snap, fmt.Errorf("load settings: %w", err)
	case image.Valid:
		snap.Settings.GlobalImage = &image.String
	}

	var counter int64
	const qCounter = `SELECT value FROM giveaway_counters WHERE name = $1`
	switch err := s.db.GetContext(ctx, &counter, qCounter, counterName); {
	case errors.Is(err, sql.ErrNoRows), missingTable(err):
	case err != nil:
		return snap, fmt.Errorf("load counter: %w", err)
	default:
		snap.Counter = counter
	}

	return snap, nil
}

// missingTable reports a schema that was never migrated. Its pieces load as
// defaults; Save still fails until the migrations ran.
func missingTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == undefinedTable
}

func decodeRows(rows []giveawayRow) ([]giveaway.Giveaway, error) {
	out := make([]giveaway.Giveaway, 0, len(rows))
	for _, row := range rows {
		var g giveaway.Giveaway
		if err := json.Unmarshal(row.Record, &g); err != nil {
			return nil, fmt.Errorf("record %s: %w", row.ID, err)
		}
		g.ID = row.ID
		if g.Participants == nil {
			g.Participants = []string{}
		}
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) Save(ctx context.Context, snap giveaway.Snapshot) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM giveaways`); err != nil {
		return fmt.Errorf("clear giveaways: %w", err)
	}

	const qInsert = `INSERT INTO giveaways (id, position, record) VALUES ($1, $2, $3)`
	for i := range snap.Giveaways {
		g := &snap.Giveaways[i]
		var record []byte
		if record, err = json.Marshal(g); err != nil {
			return fmt.Errorf("encode %s: %w", g.ID, err)
		}
		if _, err = tx.ExecContext(ctx, qInsert, g.ID, i, record); err != nil {
			return fmt.Errorf("insert %s: %w", g.ID, err)
		}
	}

	const qSettings = `
	INSERT INTO giveaway_settings (id, global_image) VALUES (1, $1)
	ON CONFLICT (id) DO UPDATE SET global_image = EXCLUDED.global_image`
	if _, err = tx.ExecContext(ctx, qSettings, snap.Settings.GlobalImage); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	const qCounter = `
	INSERT INTO giveaway_counters (name, value) VALUES ($1, $2)
	ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value`
	if _, err = tx.ExecContext(ctx, qCounter, counterName, snap.Counter); err != nil {
		return fmt.Errorf("save counter: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
