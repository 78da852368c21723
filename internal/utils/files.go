package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PendingFile is one file to be written by SafeWriteFiles.
type PendingFile struct {
	Path string
	Data []byte
}

// SafeWriteFile writes data to a temp file and atomically renames it into place.
func SafeWriteFile(path string, data []byte) error {
	return SafeWriteFiles([]PendingFile{{Path: path, Data: data}})
}

// SafeWriteFiles writes every file to a temp sibling first and only renames
// them into place once all temp files exist. Existing targets are moved to a
// ".bak" sibling during the commit. If a rename fails, files already committed
// are rolled back, so either every target holds its new data or every target
// is as it was.
func SafeWriteFiles(files []PendingFile) error {
	tmps := make([]string, 0, len(files))
	removeTmps := func(from int) {
		for _, t := range tmps[from:] {
			_ = os.Remove(t)
		}
	}
	for _, f := range files {
		tmp := f.Path + ".tmp"
		if err := os.WriteFile(tmp, f.Data, 0o644); err != nil {
			removeTmps(0)
			return fmt.Errorf("write temp file: %w", err)
		}
		tmps = append(tmps, tmp)
	}

	type commit struct{ path, backup string }
	var done []commit
	rollback := func() {
		for i := len(done) - 1; i >= 0; i-- {
			c := done[i]
			if c.backup != "" {
				_ = os.Rename(c.backup, c.path)
			} else {
				_ = os.Remove(c.path)
			}
		}
	}
	for i, f := range files {
		c := commit{path: f.Path}
		if FileExists(f.Path) {
			c.backup = f.Path + ".bak"
			if err := os.Rename(f.Path, c.backup); err != nil {
				rollback()
				removeTmps(i)
				return fmt.Errorf("back up %s: %w", f.Path, err)
			}
		}
		if err := os.Rename(tmps[i], f.Path); err != nil {
			if c.backup != "" {
				_ = os.Rename(c.backup, f.Path)
			}
			rollback()
			removeTmps(i)
			return fmt.Errorf("atomic rename: %w", err)
		}
		done = append(done, c)
	}
	for _, c := range done {
		if c.backup != "" {
			_ = os.Remove(c.backup)
		}
	}
	return nil
}

// PrettyJSON marshals a value as indented JSON.
func PrettyJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	return b, nil
}

// ExpandHome resolves a leading "~" to the user's home directory.
func ExpandHome(dir string) (string, error) {
	if !strings.HasPrefix(dir, "~") {
		return filepath.Clean(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	dir = strings.TrimPrefix(dir, "~")
	dir = strings.TrimPrefix(dir, string(os.PathSeparator))
	dir = strings.TrimPrefix(dir, "/")
	return filepath.Join(home, dir), nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
