package fsys

import "os"

// WriteFileAtomic writes data to a temp file beside name and renames it into
// place, so readers never observe a partially written file.
func WriteFileAtomic(fs FS, name string, data []byte, perm os.FileMode) error {
	tmp := name + ".tmp"
	if err := fs.WriteFile(tmp, data, perm); err != nil {
		return err
	}
	return fs.Rename(tmp, name)
}
