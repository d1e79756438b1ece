// Package artifacts stores failure screenshots.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/mikeqd/falix-keepalive/internal/config"
)

// Sink stores one PNG and returns where it ended up.
type Sink interface {
	Save(ctx context.Context, name string, png []byte) (string, error)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// fileName creates a timestamped, filesystem-safe name.
func fileName(now time.Time, name string) string {
	name = strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-")
	if name == "" {
		name = "screenshot"
	}
	return now.UTC().Format("2006-01-02T15-04-05") + "-" + name + ".png"
}

// DirSink writes screenshots to a local directory.
type DirSink struct {
	dir string
	now func() time.Time
}

// NewDirSink creates a sink writing under dir.
func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir, now: time.Now}
}

func (d *DirSink) Save(ctx context.Context, name string, png []byte) (string, error) {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	path := filepath.Join(d.dir, fileName(d.now(), name))
	if err := os.WriteFile(path, png, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return path, nil
}

// MultiSink saves to every sink and returns the locations that succeeded.
type MultiSink []Sink

func (m MultiSink) Save(ctx context.Context, name string, png []byte) (string, error) {
	var (
		locations []string
		errs      []error
	)
	for _, s := range m {
		loc, err := s.Save(ctx, name, png)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		locations = append(locations, loc)
	}
	return strings.Join(locations, ", "), errors.Join(errs...)
}

// FromConfig builds the sinks cfg enables, or nil when screenshots are off.
func FromConfig(ctx context.Context, cfg config.ScreenshotConfig, log *slog.Logger) Sink {
	var sinks MultiSink
	if cfg.Dir != "" {
		sinks = append(sinks, NewDirSink(cfg.Dir))
	}
	if cfg.S3Bucket != "" {
		s3sink, err := NewS3Sink(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			Prefix:          cfg.S3Prefix,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3PathStyle,
		})
		if err != nil {
			log.Warn("S3 screenshot upload disabled", "error", err)
		} else {
			sinks = append(sinks, s3sink)
		}
	}
	if len(sinks) == 0 {
		return nil
	}
	return sinks
}
