package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// LocalStore keeps blobs under a root directory on disk. It is the default
// backend for single-machine runs and tests.
type LocalStore struct {
	logger zerolog.Logger
	root   string
}

func NewLocalStore(logger zerolog.Logger, root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}
	return &LocalStore{
		logger: logger.With().Str("component", "local-store").Logger(),
		root:   root,
	}, nil
}

func (l *LocalStore) UploadFile(_ context.Context, localPath, key string) (string, error) {
	dst := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("creating blob directory: %w", err)
	}
	if err := copyFile(localPath, dst); err != nil {
		return "", err
	}
	l.logger.Debug().Str("key", key).Str("path", dst).Msg("stored blob")
	return dst, nil
}

func (l *LocalStore) DownloadFile(_ context.Context, key, localPath string) error {
	src := filepath.Join(l.root, filepath.FromSlash(key))
	if err := copyFile(src, localPath); err != nil {
		return err
	}
	l.logger.Debug().Str("key", key).Str("path", localPath).Msg("fetched blob")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	return out.Close()
}
