package save

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DirSaver writes the runtime layout under Dir and a compressed round dump
// under Dir/../rounds.
type DirSaver struct {
	Dir    string
	Logger *zap.Logger
}

// Save implements the engine's snapshot sink.
func (d DirSaver) Save(ctx context.Context, s Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := Write(d.Dir, s); err != nil {
		return err
	}
	dump := filepath.Join(filepath.Dir(d.Dir), "rounds", filepath.Base(d.Dir), DumpName(s.Runtime.Round))
	if err := WriteDump(dump, s); err != nil {
		return err
	}
	if d.Logger != nil {
		d.Logger.Info("saved runtime", zap.String("dir", d.Dir), zap.Int("round", s.Runtime.Round))
	}
	return nil
}

// Repository stores zipped runtime layouts.
type Repository interface {
	Put(ctx context.Context, game string, round int, archive []byte) (uuid.UUID, error)
}

// RepositorySaver writes the runtime layout under Dir, then stores its zip in Repo.
type RepositorySaver struct {
	Dir    string
	Repo   Repository
	Logger *zap.Logger
}

// Save implements the engine's snapshot sink.
func (r RepositorySaver) Save(ctx context.Context, s Snapshot) error {
	if err := Write(r.Dir, s); err != nil {
		return err
	}
	data, err := ArchiveBytes(r.Dir)
	if err != nil {
		return err
	}
	id, err := r.Repo.Put(ctx, s.Runtime.Game, s.Runtime.Round, data)
	if err != nil {
		return fmt.Errorf("storing save: %w", err)
	}
	if r.Logger != nil {
		r.Logger.Info("stored save",
			zap.String("game", s.Runtime.Game),
			zap.Int("round", s.Runtime.Round),
			zap.String("id", id.String()),
		)
	}
	return nil
}
