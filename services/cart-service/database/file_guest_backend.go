package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileGuestBackend keeps one human-readable JSON file per guest under dir.
// Writes go through a temp file and rename so a crash never leaves a torn
// document behind.
type FileGuestBackend struct {
	dir string
}

func NewFileGuestBackend(dir string) (*FileGuestBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create guest cart dir: %w", err)
	}
	return &FileGuestBackend{dir: dir}, nil
}

func (f *FileGuestBackend) path(guestID string) (string, error) {
	if guestID == "" || guestID == "." || guestID == ".." || strings.ContainsAny(guestID, `/\`) {
		return "", fmt.Errorf("invalid guest id %q", guestID)
	}
	return filepath.Join(f.dir, guestID+".json"), nil
}

func (f *FileGuestBackend) Get(_ context.Context, guestID string) ([]byte, error) {
	p, err := f.path(guestID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrGuestCartNotFound
	}
	return data, err
}

func (f *FileGuestBackend) Set(_ context.Context, guestID string, data []byte) error {
	p, err := f.path(guestID)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.dir, guestID+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), p)
}

func (f *FileGuestBackend) Delete(_ context.Context, guestID string) error {
	p, err := f.path(guestID)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
