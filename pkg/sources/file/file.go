/*
Copyright 2026 The Aqiflow Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package file reads NDJSON readings from a file or stdin. The input ending ends
// the source, which is what the replay command relies on.
package file

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/sources"
)

const (
	sourceName = "file"
	// Stdin is the path reading standard input.
	Stdin       = "-"
	maxLineSize = 1 << 20
)

type FileSource struct {
	path   string
	reader io.Reader
	closer io.Closer
	logger *zap.SugaredLogger
}

var _ sources.Source = (*FileSource)(nil)

type Option func(*FileSource)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *FileSource) {
		o.logger = l
	}
}

// WithReader reads r instead of opening the path.
func WithReader(r io.Reader) Option {
	return func(o *FileSource) {
		o.reader = r
	}
}

func New(path string, opts ...Option) *FileSource {
	f := &FileSource{path: path}
	for _, o := range opts {
		o(f)
	}
	if f.logger == nil {
		f.logger = logging.NewLogger()
	}
	f.logger = f.logger.With("source", sourceName, "path", path)
	return f
}

func (f *FileSource) Name() string {
	return sourceName
}

func (f *FileSource) open() (io.Reader, error) {
	if f.reader != nil {
		return f.reader, nil
	}
	if f.path == Stdin {
		return os.Stdin, nil
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s, %w", f.path, err)
	}
	f.closer = fh
	return fh, nil
}

// Start submits every line and returns at the end of the input.
func (f *FileSource) Start(ctx context.Context, submitter sources.Submitter) error {
	r, err := f.open()
	if err != nil {
		return err
	}
	ctx = sources.WithSourceName(ctx, sourceName)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	var lines, accepted, rejected int
	for scanner.Scan() {
		lines++
		a, rj, err := sources.SubmitLines(ctx, submitter, scanner.Bytes(), f.logger)
		accepted += a
		rejected += rj
		if err != nil {
			f.logger.Infow("Stopped reading", zap.Int("line", lines), zap.Error(err))
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed reading %s at line %d, %w", f.path, lines+1, err)
	}
	f.logger.Infow("Reached the end of the input", zap.Int("accepted", accepted), zap.Int("rejected", rejected))
	return nil
}

func (f *FileSource) Close() error {
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}
