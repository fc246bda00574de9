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

// Package file appends summaries as NDJSON to one directory per summary kind.
//
// Files are partitioned by the UTC day of the window start:
//
//	<dir>/statistics/part-20240301.json
//	<dir>/histogram/part-20240301.json
//	<dir>/distribution/part-20240301.json
package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

const partitionLayout = "20060102"

// ToFile is a sink writing NDJSON files.
type ToFile struct {
	sync.Mutex
	dir   string
	files map[string]*os.File
	log   *zap.SugaredLogger
}

type Option func(*ToFile)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *ToFile) {
		t.log = log
	}
}

// NewToFile creates dir and one sub directory per summary kind.
func NewToFile(dir string, opts ...Option) (*ToFile, error) {
	t := &ToFile{dir: dir, files: make(map[string]*os.File)}
	for _, o := range opts {
		o(t)
	}
	if t.log == nil {
		t.log = logging.NewLogger()
	}
	for _, k := range summary.Kinds() {
		if err := os.MkdirAll(filepath.Join(dir, k.String()), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory, %w", err)
		}
	}
	return t, nil
}

func (t *ToFile) Name() string {
	return "file"
}

// Path returns the file a summary is appended to.
func (t *ToFile) Path(s summary.Summary) string {
	return filepath.Join(t.dir, s.Kind().String(), "part-"+s.WindowStart().UTC().Format(partitionLayout)+".json")
}

func (t *ToFile) Write(_ context.Context, s summary.Summary) error {
	line, err := s.MarshalJSON()
	if err != nil {
		return err
	}
	t.Lock()
	defer t.Unlock()
	f, err := t.open(t.Path(s))
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append to %s, %w", f.Name(), err)
	}
	return nil
}

// open returns the handle of path, closing the other handles of the same kind.
// Windows are emitted in start order, so an older day is not written again.
func (t *ToFile) open(path string) (*os.File, error) {
	if f, ok := t.files[path]; ok {
		return f, nil
	}
	kindDir := filepath.Dir(path)
	for p, f := range t.files {
		if filepath.Dir(p) == kindDir {
			if err := f.Close(); err != nil {
				t.log.Warnw("Failed to close the output file", zap.String("path", p), zap.Error(err))
			}
			delete(t.files, p)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s, %w", path, err)
	}
	t.files[path] = f
	return f, nil
}

func (t *ToFile) Close() error {
	t.Lock()
	defer t.Unlock()
	var errs error
	for p, f := range t.files {
		errs = multierr.Append(errs, f.Close())
		delete(t.files, p)
	}
	return errs
}
