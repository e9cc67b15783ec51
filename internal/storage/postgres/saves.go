package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSaveNotFound is returned when a game has no stored save.
var ErrSaveNotFound = errors.New("save not found")

// SaveInfo describes a stored save without its archive.
type SaveInfo struct {
	ID        uuid.UUID
	Game      string
	Round     int
	Size      int
	CreatedAt time.Time
}

// Save is a stored runtime archive.
type Save struct {
	SaveInfo
	Archive []byte
}

// SaveRepository stores zipped runtime directories, one row per save.
type SaveRepository struct {
	db *pgxpool.Pool
}

// NewSaveRepository creates a SaveRepository backed by db.
//
// Precondition: db must be a valid, open connection pool.
func NewSaveRepository(db *pgxpool.Pool) *SaveRepository {
	return &SaveRepository{db: db}
}

// Put stores archive as the save of game at round.
//
// Precondition: game must be non-empty; archive must be a zip of a runtime directory.
// Postcondition: Returns the id of the new row.
func (r *SaveRepository) Put(ctx context.Context, game string, round int, archive []byte) (uuid.UUID, error) {
	if game == "" {
		return uuid.Nil, errors.New("storing save: game name must be non-empty")
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generating save id: %w", err)
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO saves (id, game, round, archive)
		 VALUES ($1, $2, $3, $4)`,
		id, game, round, archive,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting save: %w", err)
	}
	return id, nil
}

// Latest returns the most recent save of game: highest round, newest row first.
//
// Postcondition: Returns ErrSaveNotFound if game has no saves.
func (r *SaveRepository) Latest(ctx context.Context, game string) (Save, error) {
	var s Save
	err := r.db.QueryRow(ctx,
		`SELECT id, game, round, octet_length(archive), created_at, archive
		 FROM saves WHERE game = $1
		 ORDER BY round DESC, created_at DESC
		 LIMIT 1`,
		game,
	).Scan(&s.ID, &s.Game, &s.Round, &s.Size, &s.CreatedAt, &s.Archive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Save{}, fmt.Errorf("%w: %q", ErrSaveNotFound, game)
		}
		return Save{}, fmt.Errorf("querying latest save: %w", err)
	}
	return s, nil
}

// Get returns the save with id.
//
// Postcondition: Returns ErrSaveNotFound if no row has id.
func (r *SaveRepository) Get(ctx context.Context, id uuid.UUID) (Save, error) {
	var s Save
	err := r.db.QueryRow(ctx,
		`SELECT id, game, round, octet_length(archive), created_at, archive
		 FROM saves WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Game, &s.Round, &s.Size, &s.CreatedAt, &s.Archive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Save{}, fmt.Errorf("%w: %s", ErrSaveNotFound, id)
		}
		return Save{}, fmt.Errorf("querying save: %w", err)
	}
	return s, nil
}

// List returns every save of game, oldest round first.
func (r *SaveRepository) List(ctx context.Context, game string) ([]SaveInfo, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, game, round, octet_length(archive), created_at
		 FROM saves WHERE game = $1
		 ORDER BY round, created_at`,
		game,
	)
	if err != nil {
		return nil, fmt.Errorf("listing saves: %w", err)
	}
	infos, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SaveInfo, error) {
		var s SaveInfo
		err := row.Scan(&s.ID, &s.Game, &s.Round, &s.Size, &s.CreatedAt)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning saves: %w", err)
	}
	return infos, nil
}

// Prune deletes all but the keep most recent saves of game.
//
// Postcondition: Returns the number of deleted rows.
func (r *SaveRepository) Prune(ctx context.Context, game string, keep int) (int64, error) {
	if keep < 0 {
		return 0, fmt.Errorf("pruning saves: keep must be >= 0, got %d", keep)
	}
	tag, err := r.db.Exec(ctx,
		`DELETE FROM saves WHERE game = $1 AND id NOT IN (
			SELECT id FROM saves WHERE game = $1
			ORDER BY round DESC, created_at DESC
			LIMIT $2
		)`,
		game, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning saves: %w", err)
	}
	return tag.RowsAffected(), nil
}
