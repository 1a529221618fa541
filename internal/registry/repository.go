package registry

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/HexSleeves/summ-daemon/internal/fsys"
)

// Repository mirrors Records to meta.json files under
// BASE/sessions/<id>/meta.json, and recovers the registry's contents by
// scanning that directory at startup.
type Repository struct {
	fs          fsys.FS
	sessionsDir string
}

// NewRepository returns a Repository rooted at sessionsDir
// (BASE/sessions).
func NewRepository(fs fsys.FS, sessionsDir string) *Repository {
	return &Repository{fs: fs, sessionsDir: sessionsDir}
}

func (r *Repository) metaPath(id string) string {
	return filepath.Join(r.sessionsDir, id, "meta.json")
}

// Save writes rec's meta.json, creating the session directory if absent.
// The write is atomic (temp file + rename), matching I5's tolerance for
// best-effort durability without requiring it.
func (r *Repository) Save(rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("registry: marshaling %s: %w", rec.SessionID, err)
	}

	dir := filepath.Join(r.sessionsDir, rec.SessionID)
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("registry: creating %s: %w", dir, err)
	}

	if err := fsys.WriteFileAtomic(r.fs, r.metaPath(rec.SessionID), data, 0o644); err != nil {
		return fmt.Errorf("registry: writing meta.json for %s: %w", rec.SessionID, err)
	}
	return nil
}

// Load reads one session's meta.json.
func (r *Repository) Load(id string) (Record, error) {
	data, err := r.fs.ReadFile(r.metaPath(id))
	if err != nil {
		return Record{}, fmt.Errorf("registry: reading meta.json for %s: %w", id, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("registry: unmarshaling meta.json for %s: %w", id, err)
	}
	return rec, nil
}

// LoadAll scans sessionsDir for session subdirectories and loads each
// meta.json found, skipping (not failing on) any entry that is missing or
// corrupt — startup recovery favors partial data over refusing to start.
func (r *Repository) LoadAll() ([]Record, error) {
	entries, err := r.fs.ReadDir(r.sessionsDir)
	if err != nil {
		return nil, nil
	}

	var out []Record
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := r.Load(entry.Name())
		if err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Delete removes a session's entire directory (meta.json, workspace/,
// runtime/), unlinking it from disk per I4.
func (r *Repository) Delete(id string) error {
	dir := filepath.Join(r.sessionsDir, id)
	if err := r.fs.RemoveAll(dir); err != nil {
		return fmt.Errorf("registry: removing %s: %w", dir, err)
	}
	return nil
}
