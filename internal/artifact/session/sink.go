package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/louisbranch/inventag/internal/artifact/document"
)

// Sink receives exported documents.
type Sink interface {
	// Export writes doc under name and returns where it was written.
	Export(ctx context.Context, name string, doc *document.Document) (string, error)
}

// DirSink writes documents into a directory. Files appear atomically.
type DirSink struct {
	Dir string
}

// Export implements Sink.
func (s DirSink) Export(ctx context.Context, name string, doc *document.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := doc.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("close document: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return "", fmt.Errorf("chmod document: %w", err)
	}
	path := filepath.Join(dir, name)
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return "", fmt.Errorf("rename document: %w", err)
	}
	return path, nil
}

// WriterSink streams documents to W.
type WriterSink struct {
	W io.Writer
}

// Export implements Sink.
func (s WriterSink) Export(ctx context.Context, name string, doc *document.Document) (string, error) {
	if s.W == nil {
		return "", errors.New("writer sink has no writer")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := doc.WriteTo(s.W); err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	return name, nil
}
