package files

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DirWriter writes files under Root using the runtime save layout:
// <Root>/<owner>/props/<name>.json, <Root>/<owner>/actor_archives/<name>.json,
// and <Root>/<owner>/stage_archives/<name>.json.
type DirWriter struct {
	Root string
}

// WriteProp implements Writer.
func (w DirWriter) WriteProp(p PropFile) error {
	return writeJSON(w.path(p.Owner, "props", p.Name()), p)
}

// DeleteProp implements Writer.
func (w DirWriter) DeleteProp(owner, name string) error {
	err := os.Remove(w.path(owner, "props", name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing prop file: %w", err)
	}
	return nil
}

// WriteActorArchive implements Writer.
func (w DirWriter) WriteActorArchive(a ActorArchive) error {
	return writeJSON(w.path(a.Owner, "actor_archives", a.Name), a)
}

// WriteStageArchive implements Writer.
func (w DirWriter) WriteStageArchive(a StageArchive) error {
	return writeJSON(w.path(a.Owner, "stage_archives", a.Name), a)
}

func (w DirWriter) path(owner, dir, name string) string {
	return filepath.Join(w.Root, SafeName(owner), dir, SafeName(name)+".json")
}

// SafeName maps an entity or prop name to a single path element.
func SafeName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "..", "_", string(os.PathSeparator), "_")
	s := r.Replace(strings.TrimSpace(name))
	if s == "" {
		return "_"
	}
	return s
}

// WriteJSON writes v as indented JSON to path, creating parent directories.
func WriteJSON(path string, v any) error {
	return writeJSON(path, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
