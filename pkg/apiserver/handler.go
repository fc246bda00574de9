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

package apiserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aqiflow/aqiflow"
	"github.com/aqiflow/aqiflow/pkg/engine"
	"github.com/aqiflow/aqiflow/pkg/rolling"
	"github.com/aqiflow/aqiflow/pkg/summary"
)

const defaultSummaryLimit = 20

type handler struct {
	engine Engine
	store  SummaryStore
}

// Status is the body of GET /api/v1/status.
type Status struct {
	Version aqiflow.Version `json:"version"`
	Engine  engine.Stats    `json:"engine"`
}

// RollingStats is the body of GET /api/v1/rolling.
type RollingStats struct {
	Size   int  `json:"size"`
	Length int  `json:"length"`
	Ready  bool `json:"ready"`
	// Stats is keyed by field, then by mean, std, min and max.
	Stats map[string]map[string]summary.Float `json:"stats,omitempty"`
}

// Outlier is an element of GET /api/v1/outliers.
type Outlier struct {
	Reading map[string]interface{} `json:"reading"`
	Fields  []string               `json:"fields"`
}

func (h *handler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, NewAPIResponse(nil, Status{Version: aqiflow.GetVersion(), Engine: h.engine.Stats()}))
}

func (h *handler) ListSummaries(c *gin.Context) {
	kind, err := summary.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}
	limit := defaultSummaryLimit
	if s := c.Query("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("invalid limit %q", s)))
			return
		}
	}
	sums := h.store.Latest(kind, limit)
	if sums == nil {
		sums = []summary.Summary{}
	}
	c.JSON(http.StatusOK, NewAPIResponse(nil, sums))
}

func (h *handler) GetRolling(c *gin.Context) {
	w := h.engine.Rolling()
	out := RollingStats{Size: w.Size(), Length: w.Len()}
	if stats, ok := w.Stats(); ok {
		out.Ready = true
		out.Stats = make(map[string]map[string]summary.Float, len(stats))
		for field, fs := range stats {
			out.Stats[field] = map[string]summary.Float{
				"mean": summary.Float(fs.Mean),
				"std":  summary.Float(fs.Std),
				"min":  summary.Float(fs.Min),
				"max":  summary.Float(fs.Max),
			}
		}
	}
	c.JSON(http.StatusOK, NewAPIResponse(nil, out))
}

func (h *handler) ListOutliers(c *gin.Context) {
	var threshold float64
	if s := c.Query("threshold"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, errorResponse(fmt.Sprintf("invalid threshold %q", s)))
			return
		}
		threshold = v
	}
	outliers := h.engine.Rolling().Outliers(threshold)
	out := make([]Outlier, 0, len(outliers))
	for _, o := range outliers {
		out = append(out, toOutlier(o))
	}
	c.JSON(http.StatusOK, NewAPIResponse(nil, out))
}

func toOutlier(o rolling.Outlier) Outlier {
	return Outlier{Reading: o.Event.Fields(), Fields: o.Fields}
}
