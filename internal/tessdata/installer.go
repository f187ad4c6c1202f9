// Package tessdata keeps the app-private Tesseract language data directory
// populated from a read-only bundle.
package tessdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Ext marks trained language data files.
const Ext = ".traineddata"

// Installer copies bundled language data into a destination directory.
// Files already present in the destination are never overwritten.
type Installer struct {
	src    fs.FS
	dir    string
	logger *zap.Logger

	once sync.Once
	err  error
}

// NewInstaller returns an Installer reading from src (may be nil when no
// bundle ships with the app) and writing into dir.
func NewInstaller(src fs.FS, dir string, logger *zap.Logger) *Installer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Installer{src: src, dir: dir, logger: logger.Named("tessdata")}
}

// Dir returns the managed directory.
func (i *Installer) Dir() string { return i.dir }

// Ensure runs Install once per Installer. Later calls return the first
// outcome without touching the filesystem. The first caller's cancellation
// does not abort the shared setup.
func (i *Installer) Ensure(ctx context.Context) error {
	i.once.Do(func() {
		_, i.err = i.Install(context.WithoutCancel(ctx))
	})
	return i.err
}

// Install creates the destination directory and copies every missing
// *.traineddata file from the bundle. It returns the names it copied.
func (i *Installer) Install(ctx context.Context) ([]string, error) {
	if err := os.MkdirAll(i.dir, 0o755); err != nil {
		i.logger.Error("create tessdata directory", zap.String("dir", i.dir), zap.Error(err))
		return nil, fmt.Errorf("create tessdata dir: %w", err)
	}
	if i.src == nil {
		return nil, nil
	}

	entries, err := fs.ReadDir(i.src, ".")
	if errors.Is(err, fs.ErrNotExist) {
		i.logger.Debug("no tessdata bundle")
		return nil, nil
	}
	if err != nil {
		i.logger.Error("list tessdata bundle", zap.Error(err))
		return nil, fmt.Errorf("list bundle: %w", err)
	}

	var copied []string
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		if !entry.Type().IsRegular() || path.Ext(entry.Name()) != Ext {
			continue
		}
		ok, err := i.copyFile(entry.Name())
		if err != nil {
			i.logger.Error("copy language data", zap.String("file", entry.Name()), zap.Error(err))
			return copied, fmt.Errorf("copy %s: %w", entry.Name(), err)
		}
		if ok {
			i.logger.Info("copied language data", zap.String("file", entry.Name()), zap.String("dir", i.dir))
			copied = append(copied, entry.Name())
		}
	}
	return copied, nil
}

// copyFile reports false when the destination already exists.
func (i *Installer) copyFile(name string) (bool, error) {
	dst := filepath.Join(i.dir, name)
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	in, err := i.src.Open(name)
	if err != nil {
		out.Close()
		os.Remove(dst)
		return false, err
	}
	defer in.Close()

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return false, err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return false, err
	}
	return true, nil
}

// Languages lists installed language codes, sorted.
func (i *Installer) Languages() ([]string, error) {
	entries, err := os.ReadDir(i.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tessdata dir: %w", err)
	}
	langs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && filepath.Ext(e.Name()) == Ext {
			langs = append(langs, strings.TrimSuffix(e.Name(), Ext))
		}
	}
	sort.Strings(langs)
	return langs, nil
}
