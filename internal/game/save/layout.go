package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/cory-johannsen/agentrpg/internal/agent"
	"github.com/cory-johannsen/agentrpg/internal/game/files"
)

// File names of the runtime layout.
const (
	RuntimeFile     = "runtime.json"
	EntityFile      = "entity.json"
	ChatHistoryFile = "chat_history.json"
	PropsDir        = "props"
	ActorArchiveDir = "actor_archives"
	StageArchiveDir = "stage_archives"
)

// Write replaces dir with the runtime layout of s:
//
//	dir/runtime.json
//	dir/<entity>/entity.json
//	dir/<entity>/chat_history.json
//	dir/<entity>/props/<prop>.json
//	dir/<entity>/actor_archives/<actor>.json
//	dir/<entity>/stage_archives/<stage>.json
func Write(dir string, s Snapshot) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("clearing runtime dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating runtime dir: %w", err)
	}
	s = s.Normalized()
	if err := files.WriteJSON(filepath.Join(dir, RuntimeFile), s.Runtime); err != nil {
		return err
	}
	for _, e := range s.Entities {
		if err := files.WriteJSON(filepath.Join(dir, files.SafeName(e.Name), EntityFile), e); err != nil {
			return err
		}
	}
	for _, h := range s.ChatHistories {
		if err := files.WriteJSON(filepath.Join(dir, files.SafeName(h.Name), ChatHistoryFile), h); err != nil {
			return err
		}
	}
	w := files.DirWriter{Root: dir}
	for _, p := range s.Props {
		if err := w.WriteProp(p); err != nil {
			return err
		}
	}
	for _, a := range s.ActorArchives {
		if err := w.WriteActorArchive(a); err != nil {
			return err
		}
	}
	for _, a := range s.StageArchives {
		if err := w.WriteStageArchive(a); err != nil {
			return err
		}
	}
	return nil
}

// Read loads a runtime layout written by Write. A missing chat_history.json
// leaves that entity without a history entry.
func Read(dir string) (Snapshot, error) {
	var s Snapshot
	if err := readJSON(filepath.Join(dir, RuntimeFile), &s.Runtime); err != nil {
		return Snapshot{}, err
	}
	for _, name := range s.Runtime.Entities {
		base := filepath.Join(dir, files.SafeName(name))

		var e EntityDump
		if err := readJSON(filepath.Join(base, EntityFile), &e); err != nil {
			return Snapshot{}, err
		}
		s.Entities = append(s.Entities, e)

		var h agent.HistoryDump
		err := readJSON(filepath.Join(base, ChatHistoryFile), &h)
		switch {
		case err == nil:
			s.ChatHistories = append(s.ChatHistories, h)
		case !errors.Is(err, fs.ErrNotExist):
			return Snapshot{}, err
		}

		if err := readDir(filepath.Join(base, PropsDir), &s.Props); err != nil {
			return Snapshot{}, err
		}
		if err := readDir(filepath.Join(base, ActorArchiveDir), &s.ActorArchives); err != nil {
			return Snapshot{}, err
		}
		if err := readDir(filepath.Join(base, StageArchiveDir), &s.StageArchives); err != nil {
			return Snapshot{}, err
		}
	}
	s.Normalize()
	return s, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// readDir appends every *.json file of dir, in name order, to out.
func readDir[T any](dir string, out *[]T) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, n := range names {
		var v T
		if err := readJSON(filepath.Join(dir, n), &v); err != nil {
			return err
		}
		*out = append(*out, v)
	}
	return nil
}
