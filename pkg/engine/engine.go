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

// Package engine wires the normalizer, the window manager, the watermark clock and
// the emitter into a running aggregation engine.
//
// Any number of sources submit raw lines concurrently through Handle.Submit. The
// lines are normalized on the caller's goroutine and queued on a bounded dispatch
// queue, which drops the oldest reading when full. A single loop goroutine owns all
// window state: it assigns each reading to its windows, advances the watermark and
// emits the windows the watermark has closed. The loop also wakes on an idle ticker
// so that windows are flushed while no readings arrive.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/aqiflow/aqiflow/pkg/config"
	"github.com/aqiflow/aqiflow/pkg/emitter"
	"github.com/aqiflow/aqiflow/pkg/event"
	"github.com/aqiflow/aqiflow/pkg/metrics"
	"github.com/aqiflow/aqiflow/pkg/rolling"
	"github.com/aqiflow/aqiflow/pkg/shared/expr"
	"github.com/aqiflow/aqiflow/pkg/shared/idlehandler"
	"github.com/aqiflow/aqiflow/pkg/shared/logging"
	"github.com/aqiflow/aqiflow/pkg/shared/queue"
	"github.com/aqiflow/aqiflow/pkg/sinks"
	"github.com/aqiflow/aqiflow/pkg/sources"
	"github.com/aqiflow/aqiflow/pkg/watermark/clock"
	"github.com/aqiflow/aqiflow/pkg/watermark/wmb"
	"github.com/aqiflow/aqiflow/pkg/window"
)

var (
	// ErrNotRunning is reported by IsHealthy once the engine is stopping.
	ErrNotRunning = errors.New("engine is not running")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = queue.ErrQueueClosed
)

// Handle is a running engine. Submit, Stats and IsHealthy are safe for concurrent use.
type Handle struct {
	manager *window.Manager
	clock   *clock.Clock
	emitter *emitter.Emitter
	sink    *sinks.Fanout
	rolling *rolling.Window
	filter  *expr.Filter
	idle    *idlehandler.SourceIdleHandler
	queue   *queue.DispatchQueue[event.Event]

	idleFlushInterval time.Duration
	log               *zap.SugaredLogger

	received  *atomic.Uint64
	accepted  *atomic.Uint64
	malformed *atomic.Uint64
	filtered  *atomic.Uint64
	late      *atomic.Uint64
	dropped   *atomic.Uint64
	emitted   *atomic.Uint64
	stopping  *atomic.Bool

	stopOnce sync.Once
	done     chan struct{}
	closeErr error
}

// Start builds the engine from cfg and starts its dispatch loop. Cancelling ctx
// shuts the engine down the same way Stop does.
func Start(ctx context.Context, cfg *config.Config, opts ...Option) (*Handle, error) {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.log == nil {
		o.log = logging.FromContext(ctx)
	}
	log := o.log.Named("engine")

	pollutants, err := cfg.Engine.Pollutants()
	if err != nil {
		return nil, err
	}
	families := []*window.Family{
		window.NewStatisticsFamily(cfg.Engine.StatisticsWindowSize, pollutants),
		window.NewDistributionFamily(cfg.Engine.DistributionWindowSize, window.DefaultQuantileMetrics),
	}
	if cfg.Engine.HourlyEnabled {
		families = append(families, window.NewHourlyFamily())
	}
	manager, err := window.NewManager(families,
		window.WithSketchCompression(cfg.Engine.SketchCompression),
		window.WithSketchDegradeHandler(func(family string) {
			metrics.SketchDegraded.WithLabelValues(family).Inc()
			log.Warnw("Quantile sketch over capacity, reducing its compression", zap.String("family", family))
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to create the window manager, %w", err)
	}

	var filter *expr.Filter
	if cfg.Engine.Filter != "" {
		if filter, err = expr.NewFilter(cfg.Engine.Filter, event.Event{}.Fields()); err != nil {
			return nil, err
		}
	}

	fanoutOpts := []sinks.Option{sinks.WithLogger(log)}
	if o.retryBackoff != nil {
		fanoutOpts = append(fanoutOpts, sinks.WithRetryBackoff(*o.retryBackoff))
	}
	sink := sinks.NewFanout(o.sinks, fanoutOpts...)

	wmClock := clock.New(cfg.Engine.AllowedLateness)
	h := &Handle{
		manager: manager,
		clock:   wmClock,
		emitter: emitter.New(manager, sink, emitter.WithLogger(log), emitter.WithClock(o.now)),
		sink:    sink,
		rolling: rolling.NewWindow(cfg.Rolling.Size, cfg.Rolling.OutlierThreshold),
		filter:  filter,
		idle: idlehandler.NewSourceIdleHandler(idlehandler.Config{
			Threshold:    cfg.Engine.IdleThreshold,
			StepInterval: cfg.Engine.IdleFlushInterval,
			IncrementBy:  cfg.Engine.IdleIncrement,
			MaxDelay:     cfg.Engine.AllowedLateness,
		}, wmClock, idlehandler.WithNow(o.now)),
		queue:             queue.NewDispatchQueue[event.Event](cfg.Engine.QueueSize),
		idleFlushInterval: cfg.Engine.IdleFlushInterval,
		log:               log,
		received:          atomic.NewUint64(0),
		accepted:          atomic.NewUint64(0),
		malformed:         atomic.NewUint64(0),
		filtered:          atomic.NewUint64(0),
		late:              atomic.NewUint64(0),
		dropped:           atomic.NewUint64(0),
		emitted:           atomic.NewUint64(0),
		stopping:          atomic.NewBool(false),
		done:              make(chan struct{}),
	}

	sinkNames := make([]string, 0, len(o.sinks))
	for _, s := range o.sinks {
		sinkNames = append(sinkNames, s.Name())
	}
	log.Infow("Starting the engine",
		zap.Duration("statisticsWindowSize", cfg.Engine.StatisticsWindowSize),
		zap.Duration("distributionWindowSize", cfg.Engine.DistributionWindowSize),
		zap.Duration("allowedLateness", cfg.Engine.AllowedLateness),
		zap.Int("queueSize", cfg.Engine.QueueSize),
		zap.Strings("sinks", sinkNames))

	// emitting must outlive the caller's cancellation, the sinks still get the final windows.
	go h.loop(ctx, logging.WithLogger(context.WithoutCancel(ctx), log))
	return h, nil
}

// Submit normalizes one NDJSON line and queues it. Blank lines are ignored. A
// malformed line is counted and returned as a *event.MalformedEventError.
func (h *Handle) Submit(ctx context.Context, line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	source := sources.SourceNameFromContext(ctx)
	metrics.EventsReceived.WithLabelValues(source).Inc()
	h.received.Inc()

	ev, err := event.DecodeAndNormalize(line)
	if err != nil {
		h.malformed.Inc()
		metrics.EventsMalformed.WithLabelValues(string(event.ReasonOf(err))).Inc()
		h.log.Debugw("Dropping the malformed reading", zap.String("source", source), zap.Error(err))
		return err
	}
	dropped, err := h.queue.Push(ev)
	if err != nil {
		return err
	}
	if dropped {
		h.dropped.Inc()
		metrics.QueueDropped.Inc()
	}
	return nil
}

func (h *Handle) loop(parent context.Context, ctx context.Context) {
	defer close(h.done)
	ticker := time.NewTicker(h.idleFlushInterval)
	defer ticker.Stop()
	cancelled := parent.Done()
	for {
		select {
		case <-cancelled:
			h.log.Info("Context cancelled, stopping the engine")
			cancelled = nil
			h.stop()
		case <-h.queue.Ready():
			h.drain(ctx)
			if h.queue.Done() {
				h.shutdown(ctx)
				return
			}
		case <-ticker.C:
			h.tick(ctx)
		}
	}
}

func (h *Handle) drain(ctx context.Context) {
	for {
		ev, ok := h.queue.Pop()
		if !ok {
			break
		}
		h.process(ctx, ev)
	}
	h.updateGauges()
}

func (h *Handle) process(ctx context.Context, ev event.Event) {
	if h.filter != nil {
		ok, err := h.filter.Match(ev.Fields())
		if err != nil {
			h.log.Warnw("Failed to evaluate the filter, dropping the reading", zap.Error(err))
		}
		if err != nil || !ok {
			h.filtered.Inc()
			metrics.EventsFiltered.Inc()
			return
		}
	}
	h.accepted.Inc()
	metrics.EventsAccepted.Inc()
	h.idle.Reset()

	// lateness is judged against the watermark before this reading moves it.
	wm, ok := h.clock.Current()
	if !ok {
		// nothing is late before the first reading
		wm = wmb.MinWatermark
	}
	for _, f := range h.manager.Families() {
		w, err := h.manager.Assign(f, ev, wm)
		if err != nil {
			var le *window.LateEventError
			if errors.As(err, &le) {
				h.late.Inc()
				metrics.EventsLate.WithLabelValues(f.Name).Inc()
				h.log.Warnw("Dropping the late event", zap.String("family", f.Name),
					zap.Time("eventTime", ev.EventTime), zap.Time("windowEnd", le.WindowEnd), zap.String("watermark", wm.String()))
				continue
			}
			h.log.Errorw("Failed to assign the reading", zap.String("family", f.Name), zap.Error(err))
			continue
		}
		w.Update(ev)
	}

	for _, field := range h.rolling.Add(ev) {
		metrics.Outliers.WithLabelValues(field).Inc()
	}

	h.emit(ctx, h.clock.Observe(ev.EventTime))
}

func (h *Handle) tick(ctx context.Context) {
	if h.idle.IsSourceIdling() {
		if wm, moved := h.idle.PublishSourceIdleWatermark(); moved {
			h.log.Debugw("Input idling, advanced the watermark", zap.String("watermark", wm.String()))
		}
	}
	if wm, ok := h.clock.Current(); ok {
		h.emit(ctx, wm)
	}
	h.updateGauges()
}

func (h *Handle) emit(ctx context.Context, wm wmb.Watermark) {
	if n := h.emitter.Emit(ctx, wm); n > 0 {
		h.emitted.Add(uint64(n))
	}
}

// shutdown runs once the queue is closed and drained.
func (h *Handle) shutdown(ctx context.Context) {
	h.emit(ctx, h.clock.Infinite())
	h.updateGauges()
	if err := h.sink.Close(); err != nil {
		h.log.Errorw("Failed to close the sinks", zap.Error(err))
		h.closeErr = err
	}
	h.log.Infow("Engine stopped", zap.Uint64("accepted", h.accepted.Load()), zap.Uint64("emitted", h.emitted.Load()))
}

func (h *Handle) stop() {
	h.stopOnce.Do(func() {
		h.stopping.Store(true)
		h.queue.Close()
	})
}

// Stop stops accepting readings, processes the queued ones, emits every remaining
// window and closes the sinks. It returns early with ctx's error if ctx is done first.
func (h *Handle) Stop(ctx context.Context) error {
	h.stop()
	select {
	case <-h.done:
		return h.closeErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the engine has shut down.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// IsHealthy reports whether the engine accepts readings.
func (h *Handle) IsHealthy(_ context.Context) error {
	if h.stopping.Load() {
		return ErrNotRunning
	}
	return nil
}

// Rolling returns the rolling window over the last accepted readings.
func (h *Handle) Rolling() *rolling.Window {
	return h.rolling
}

func (h *Handle) updateGauges() {
	metrics.QueueLength.Set(float64(h.queue.Len()))
	for _, f := range h.manager.Families() {
		metrics.ActiveWindows.WithLabelValues(f.Name).Set(float64(h.manager.Active(f.Name)))
	}
	if wm, ok := h.clock.Current(); ok && !wm.Time().Equal(wmb.MaxWatermark.Time()) {
		metrics.Watermark.Set(float64(wm.UnixMilli()) / 1000)
	}
}
