package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// FileBackend keeps each dataset in <dir>/<dataset>.json; the file's
// modification time is the write timestamp.
type FileBackend struct {
	dir string
}

func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) path(dataset string) string {
	return filepath.Join(b.dir, dataset+".json")
}

func (b *FileBackend) Load(_ context.Context, dataset string) (Entry, error) {
	p := b.path(dataset)
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, ErrNotStored
		}
		return Entry{}, fmt.Errorf("stat %s: %w", p, err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", p, err)
	}
	return Entry{Dataset: dataset, Payload: data, WrittenAt: info.ModTime()}, nil
}

// Save writes through a temp file so a crash never leaves half a document behind.
func (b *FileBackend) Save(_ context.Context, e Entry) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, e.Payload, "", "  "); err != nil {
		return fmt.Errorf("format %s: %w", e.Dataset, err)
	}
	p := b.path(e.Dataset)
	tmp, err := os.CreateTemp(b.dir, e.Dataset+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", e.Dataset, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", e.Dataset, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("rename %s: %w", e.Dataset, err)
	}
	if !e.WrittenAt.IsZero() {
		if err := os.Chtimes(p, time.Now(), e.WrittenAt); err != nil {
			return fmt.Errorf("stamp %s: %w", e.Dataset, err)
		}
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }
