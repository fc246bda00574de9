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

// Package socket serves NDJSON readings over plain TCP, one reading per line. Any
// number of clients may be connected at once.
package socket

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/sources"
)

const (
	sourceName     = "socket"
	DefaultAddress = ":9999"
	maxLineSize    = 1 << 20
)

type SocketSource struct {
	address  string
	lock     sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	logger   *zap.SugaredLogger
}

var _ sources.Source = (*SocketSource)(nil)

type Option func(*SocketSource)

func WithLogger(l *zap.SugaredLogger) Option {
	return func(o *SocketSource) {
		o.logger = l
	}
}

func New(address string, opts ...Option) *SocketSource {
	if address == "" {
		address = DefaultAddress
	}
	s := &SocketSource{address: address, conns: make(map[net.Conn]struct{})}
	for _, o := range opts {
		o(s)
	}
	if s.logger == nil {
		s.logger = logging.NewLogger()
	}
	s.logger = s.logger.With("source", sourceName)
	return s
}

func (s *SocketSource) Name() string {
	return sourceName
}

// Listen binds the address. Start calls it when it was not called before.
func (s *SocketSource) Listen() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s, %w", s.address, err)
	}
	s.listener = ln
	return nil
}

// Addr returns the bound address, nil before Listen.
func (s *SocketSource) Addr() net.Addr {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *SocketSource) Start(ctx context.Context, submitter sources.Submitter) error {
	if err := s.Listen(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(sources.WithSourceName(ctx, sourceName))
	defer cancel()
	s.logger.Infow("Socket source listening", zap.String("address", s.Addr().String()))

	go func() {
		<-ctx.Done()
		s.closeAll()
	}()

	wg := new(sync.WaitGroup)
	defer wg.Wait()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Errorw("Failed to accept a connection", zap.Error(err))
			continue
		}
		if !s.track(conn) {
			_ = conn.Close()
			return nil
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.untrack(conn)
			if err := s.serve(ctx, conn, submitter); err != nil {
				// the submitter is gone, stop the whole source.
				cancel()
			}
		}()
	}
}

func (s *SocketSource) serve(ctx context.Context, conn net.Conn, submitter sources.Submitter) error {
	log := s.logger.With("remote", conn.RemoteAddr().String())
	log.Debug("Connection opened")
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	var accepted, rejected int
	for scanner.Scan() {
		a, r, err := sources.SubmitLines(ctx, submitter, scanner.Bytes(), log)
		accepted += a
		rejected += r
		if err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil && !errors.Is(err, net.ErrClosed) {
		log.Warnw("Connection read failed", zap.Error(err))
	}
	log.Debugw("Connection closed", zap.Int("accepted", accepted), zap.Int("rejected", rejected))
	return nil
}

func (s *SocketSource) track(conn net.Conn) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.conns == nil {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *SocketSource) untrack(conn net.Conn) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.conns != nil {
		delete(s.conns, conn)
	}
	_ = conn.Close()
}

// closeAll closes the listener and every open connection.
func (s *SocketSource) closeAll() {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.conns = nil
}

func (s *SocketSource) Close() error {
	s.closeAll()
	return nil
}
