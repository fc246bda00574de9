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

package window

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqiflow/aqiflow/pkg/classifier"
	"github.com/aqiflow/aqiflow/pkg/event"
	"github.com/aqiflow/aqiflow/pkg/watermark/wmb"
)

var baseTime = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time {
	return baseTime.Add(d)
}

func newEvent(t time.Time, aqi int, co float64) event.Event {
	ev := event.Event{EventTime: t, AQI: aqi}
	ev.Components[event.CO] = co
	return ev
}

func newTestManager(t *testing.T, statSize, distSize time.Duration, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager([]*Family{
		NewStatisticsFamily(statSize, DefaultStatisticsMetrics),
		NewDistributionFamily(distSize, DefaultQuantileMetrics),
	}, opts...)
	require.NoError(t, err)
	return m
}

func TestNewManager_Invalid(t *testing.T) {
	_, err := NewManager(nil)
	assert.Error(t, err)
	_, err = NewManager([]*Family{NewStatisticsFamily(0, nil)})
	assert.Error(t, err)
	_, err = NewManager([]*Family{
		NewStatisticsFamily(time.Minute, nil),
		NewStatisticsFamily(time.Minute, nil),
	})
	assert.Error(t, err)
}

func TestManager_AssignSameWindow(t *testing.T) {
	m := newTestManager(t, 5*time.Minute, 5*time.Minute)
	stats, _ := m.Family(StatisticsFamily)

	var first *Window
	for _, d := range []time.Duration{0, 150 * time.Second, 299 * time.Second} {
		w, err := m.Assign(stats, newEvent(at(d), 1, 1), wmb.InitialWatermark)
		require.NoError(t, err)
		if first == nil {
			first = w
		}
		assert.Same(t, first, w)
		w.Update(newEvent(at(d), 1, 1))
	}
	assert.Equal(t, baseTime, first.StartTime())
	assert.Equal(t, at(5*time.Minute), first.EndTime())
	assert.Equal(t, uint64(3), first.Count())

	next, err := m.Assign(stats, newEvent(at(301*time.Second), 1, 1), wmb.InitialWatermark)
	require.NoError(t, err)
	assert.Equal(t, at(5*time.Minute), next.StartTime())
	assert.Equal(t, 2, m.Active(StatisticsFamily))
	assert.Equal(t, 0, m.Active(DistributionFamily))
}

func TestManager_LateIsPerFamily(t *testing.T) {
	m := newTestManager(t, time.Minute, 5*time.Minute)
	stats, _ := m.Family(StatisticsFamily)
	dist, _ := m.Family(DistributionFamily)
	wm := wmb.Watermark(at(2 * time.Minute))
	ev := newEvent(at(90*time.Second), 2, 1)

	_, err := m.Assign(stats, ev, wm)
	assert.ErrorIs(t, err, ErrLateEvent)
	var le *LateEventError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, StatisticsFamily, le.Family)
	assert.Equal(t, at(2*time.Minute), le.WindowEnd)

	w, err := m.Assign(dist, ev, wm)
	require.NoError(t, err)
	assert.Equal(t, baseTime, w.StartTime())
}

func TestManager_LateWhenWatermarkEqualsEnd(t *testing.T) {
	m := newTestManager(t, 5*time.Minute, 5*time.Minute)
	stats, _ := m.Family(StatisticsFamily)
	_, err := m.Assign(stats, newEvent(at(4*time.Minute), 1, 0), wmb.Watermark(at(5*time.Minute)))
	assert.ErrorIs(t, err, ErrLateEvent)
	_, err = m.Assign(stats, newEvent(at(4*time.Minute), 1, 0), wmb.Watermark(at(5*time.Minute-time.Nanosecond)))
	assert.NoError(t, err)
}

func TestManager_FinalizableAndEvict(t *testing.T) {
	m := newTestManager(t, time.Minute, 2*time.Minute)
	for _, f := range m.Families() {
		for _, d := range []time.Duration{0, time.Minute, 2 * time.Minute, 3 * time.Minute} {
			w, err := m.Assign(f, newEvent(at(d), 3, 2), wmb.InitialWatermark)
			require.NoError(t, err)
			w.Update(newEvent(at(d), 3, 2))
		}
	}
	assert.Equal(t, 4, m.Active(StatisticsFamily))
	assert.Equal(t, 2, m.Active(DistributionFamily))

	wm := wmb.Watermark(at(2 * time.Minute))
	ready := m.Finalizable(wm)
	require.Len(t, ready, 3)
	assert.Equal(t, ID{Family: StatisticsFamily, Start: baseTime}, ready[0].ID())
	assert.Equal(t, ID{Family: DistributionFamily, Start: baseTime}, ready[1].ID())
	assert.Equal(t, ID{Family: StatisticsFamily, Start: at(time.Minute)}, ready[2].ID())

	// finalizable does not remove
	assert.Len(t, m.Finalizable(wm), 3)

	for _, w := range ready {
		assert.True(t, m.Evict(w.ID()))
		assert.Equal(t, Finalized, w.Status())
		assert.False(t, m.Evict(w.ID()))
	}
	assert.Empty(t, m.Finalizable(wm))
	assert.Equal(t, 2, m.Active(StatisticsFamily))
	assert.Equal(t, 1, m.Active(DistributionFamily))
	assert.Len(t, m.ActiveWindows(StatisticsFamily), 2)

	// an evicted key can never come back
	stats, _ := m.Family(StatisticsFamily)
	_, err := m.Assign(stats, newEvent(at(30*time.Second), 1, 0), wm)
	assert.ErrorIs(t, err, ErrLateEvent)

	assert.Panics(t, func() { ready[0].Update(newEvent(at(0), 1, 0)) })
	assert.False(t, m.Evict(ID{Family: "nope"}))
	assert.Equal(t, 0, m.Active("nope"))
}

func TestWindow_State(t *testing.T) {
	m := newTestManager(t, 5*time.Minute, 5*time.Minute)
	stats, _ := m.Family(StatisticsFamily)
	dist, _ := m.Family(DistributionFamily)

	var sw, dw *Window
	for i, aqi := range []int{1, 1, 3, 5} {
		ev := newEvent(at(time.Duration(i)*time.Second), aqi, float64(10*(i+1)))
		sw, _ = m.Assign(stats, ev, wmb.InitialWatermark)
		dw, _ = m.Assign(dist, ev, wmb.InitialWatermark)
		sw.Update(ev)
		dw.Update(ev)
	}

	counts, ok := sw.Histogram()
	require.True(t, ok)
	assert.Equal(t, classifier.Counts{2, 0, 1, 0, 1}, counts)
	_, ok = dw.Histogram()
	assert.False(t, ok)

	res := sw.Statistics()
	require.Len(t, res, 5)
	assert.Equal(t, AQI, res[0].Metric)
	assert.Equal(t, 2.5, res[0].Mean)
	assert.Equal(t, "co", res[1].Metric.String())
	assert.Equal(t, 10.0, res[1].Min)
	assert.Equal(t, 40.0, res[1].Max)
	assert.Empty(t, dw.Statistics())

	q := dw.Quantiles(0, 1)
	assert.Len(t, q, 6)
	assert.Equal(t, []float64{10, 40}, q[PollutantMetric(event.CO)])
	assert.Equal(t, []float64{0, 0}, q[PollutantMetric(event.NO2)])
	assert.Empty(t, sw.Quantiles(0.5))
}

func TestManager_SketchDegradeHandler(t *testing.T) {
	var degraded []string
	m := newTestManager(t, time.Hour, time.Hour,
		WithSketchCompression(100),
		WithMaxSketchCentroids(5),
		WithSketchDegradeHandler(func(f string) { degraded = append(degraded, f) }))
	dist, _ := m.Family(DistributionFamily)
	for i := 0; i < 600; i++ {
		ev := newEvent(at(time.Duration(i)*time.Second), 1, float64(i))
		w, err := m.Assign(dist, ev, wmb.InitialWatermark)
		require.NoError(t, err)
		w.Update(ev)
	}
	assert.NotEmpty(t, degraded)
	assert.Equal(t, DistributionFamily, degraded[0])
	w := m.ActiveWindows(DistributionFamily)[0]
	p50 := w.Quantiles(0.5)[PollutantMetric(event.CO)][0]
	assert.False(t, math.IsNaN(p50))
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric("aqi")
	assert.NoError(t, err)
	assert.Equal(t, AQI, m)
	m, err = ParseMetric("pm25")
	assert.NoError(t, err)
	assert.Equal(t, "pm2_5", m.String())
	_, err = ParseMetric("dust")
	assert.Error(t, err)
	assert.Equal(t, 3.0, AQI.Value(event.Event{AQI: 3}))
}
