package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileKV is a string-keyed get/set store backed by one file per key under a
// data directory. It mirrors the contract of the device-local storage the
// fallback path was designed for: synchronous, whole-value reads and writes.
type FileKV struct {
	dir string
}

func NewFileKV(dir string) *FileKV {
	return &FileKV{dir: dir}
}

// Get returns the stored value and whether the key exists.
func (kv *FileKV) Get(key string) (string, bool, error) {
	data, err := os.ReadFile(kv.path(key))
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(data), true, nil
}

// Set writes the value atomically: a torn write must never leave a
// half-written document behind for a later read to choke on.
func (kv *FileKV) Set(key, value string) error {
	if err := os.MkdirAll(kv.dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(kv.dir, "."+sanitizeKey(key)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write value: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), kv.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace value: %w", err)
	}
	return nil
}

func (kv *FileKV) path(key string) string {
	return filepath.Join(kv.dir, sanitizeKey(key)+".json")
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, key)
}
