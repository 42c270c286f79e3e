// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logger builds the logrus logger used by the server and the CLI.
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/pdiddy/census-viewer/pkg/types"
)

// New returns a logger writing text lines with full timestamps to stderr,
// and to cfg.File as well when set. The returned closer releases the file.
func New(cfg types.LogConfig) (*logrus.Logger, io.Closer, error) {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		l, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	log := logrus.New()
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var closer io.Closer = nopCloser{}
	out := io.Writer(os.Stderr)
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		out = io.MultiWriter(os.Stderr, f)
		closer = f
	}
	log.SetOutput(out)
	return log, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
