package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Sink stores a copy of an exported workbook.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
}

// DirSink writes exports into a local directory.
type DirSink struct {
	Dir string
}

func (d DirSink) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	base := filepath.Base(name)
	if err := atomicWriteFile(d.Dir, base+".*.tmp", filepath.Join(d.Dir, base), data, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// atomicWriteFile writes through a private temp file so concurrent writers of
// the same name never share one.
func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Sinks puts to every sink and joins the failures.
type Sinks []Sink

func (s Sinks) Put(ctx context.Context, name string, data []byte) error {
	var errs []error
	for _, sink := range s {
		if err := sink.Put(ctx, name, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
