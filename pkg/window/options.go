/*
Copyright 2022 The Numaproj Authors.

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

import "github.com/aqiflow/aqiflow/pkg/sketch"

type Options struct {
	// sketchCompression is the t-digest compression of every quantile sketch
	sketchCompression float64
	// maxCentroids caps a sketch before it degrades, 0 means the sketch default
	maxCentroids int
	// onSketchDegrade is called with the family name when a sketch degrades
	onSketchDegrade func(family string)
}

func DefaultOptions() *Options {
	return &Options{
		sketchCompression: sketch.DefaultCompression,
	}
}

type Option func(options *Options) error

// WithSketchCompression sets the compression of the quantile sketches
func WithSketchCompression(c float64) Option {
	return func(o *Options) error {
		o.sketchCompression = c
		return nil
	}
}

// WithMaxSketchCentroids sets the centroid count above which a sketch degrades
func WithMaxSketchCentroids(n int) Option {
	return func(o *Options) error {
		o.maxCentroids = n
		return nil
	}
}

// WithSketchDegradeHandler sets the callback for degraded sketches
func WithSketchDegradeHandler(f func(family string)) Option {
	return func(o *Options) error {
		o.onSketchDegrade = f
		return nil
	}
}
