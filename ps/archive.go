package ps

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Archiver keeps a copy of a storage file before it is deleted.
type Archiver interface {
	Archive(ctx context.Context, name string, path string) error
}

// ArchiverFunc adapts a function to the Archiver interface.
type ArchiverFunc func(ctx context.Context, name string, path string) error

func (f ArchiverFunc) Archive(ctx context.Context, name string, path string) error {
	return f(ctx, name, path)
}

// NewArchiver builds an archiver from a target URL: "s3://bucket/prefix"
// uploads to S3, "git://<dir>" or a plain directory commits into a git
// repository at dir. An empty target disables archiving.
func NewArchiver(ctx context.Context, target string, cfg ArchiveConfig) (Archiver, error) {
	switch {
	case target == "":
		return nil, nil
	case strings.HasPrefix(strings.ToLower(target), "s3://"):
		return NewS3Archiver(ctx, target, cfg.S3)
	default:
		return NewGitArchiver(strings.TrimPrefix(target, "git://"), cfg.Git)
	}
}

// ArchiveConfig carries the per-backend settings for NewArchiver.
type ArchiveConfig struct {
	S3  S3Config
	Git GitConfig
}

// archiveKey names one archived copy: <name>/<UTC timestamp>.
func archiveKey(name string, when time.Time) string {
	return fmt.Sprintf("%s/%s", name, when.UTC().Format("20060102T150405.000000000Z"))
}

func copyFile(dst io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(dst, f)
	return err
}
