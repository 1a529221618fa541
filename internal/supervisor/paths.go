package supervisor

import "path/filepath"

func (s *Supervisor) sessionDir(id string) string { return filepath.Join(s.cfg.sessionsDir(), id) }
func (s *Supervisor) runtimeDir(id string) string { return filepath.Join(s.sessionDir(id), "runtime") }
func (s *Supervisor) statusPath(id string) string { return filepath.Join(s.runtimeDir(id), "status.json") }
