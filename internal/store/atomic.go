package store

import (
	"fmt"
	"os"
	"path/filepath"
)

type pending struct {
	path string
	data []byte
	tmp  string
}

// publish stages every file next to its target, then renames them in order.
// A staging failure removes all temp files and leaves the targets untouched.
func (s *Store) publish(files []pending) error {
	for i := range files {
		tmp, err := stage(files[i].path, files[i].data)
		if err != nil {
			for _, f := range files[:i] {
				os.Remove(f.tmp)
			}
			return fmt.Errorf("stage %s: %w", filepath.Base(files[i].path), err)
		}
		files[i].tmp = tmp
	}
	for i, f := range files {
		if err := os.Rename(f.tmp, f.path); err != nil {
			for _, rest := range files[i:] {
				os.Remove(rest.tmp)
			}
			return fmt.Errorf("publish %s: %w", filepath.Base(f.path), err)
		}
	}
	return nil
}

func stage(path string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	if err := os.Chmod(name, 0644); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// WriteFileAtomic replaces path with data via a temp file and rename.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := stage(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
