/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package regions

import (
	"fmt"

	"github.com/cloudwego/regions/internal/opts"
	"github.com/ethereum/go-ethereum/log"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithWorkers sets the number of methods AnalyzeAll works on at the same time.
//
// This value can also be configured with the `REGIONS_MAX_WORKERS`
// environment variable.
//
// The default value of this option is the number of logical cores.
func WithWorkers(n int) Option {
	if n <= 0 {
		panic(fmt.Sprintf("regions: invalid worker count: %d", n))
	} else {
		return func(o *opts.Options) { o.MaxWorkers = n }
	}
}

// WithLogger replaces the logger abandoned methods are reported to.
func WithLogger(l log.Logger) Option {
	return func(o *opts.Options) { o.Logger = l }
}

// WithDumpDir makes every abandoned method dump its block graph as a Graphviz
// file into dir.
//
// This value can also be configured with the `REGIONS_DUMP_DIR` environment
// variable.
func WithDumpDir(dir string) Option {
	return func(o *opts.Options) { o.DumpDir = dir }
}

// WithoutNormalize keeps the region tree exactly as structuring built it,
// without condition simplification, branch swapping or compound conditions.
func WithoutNormalize() Option {
	return func(o *opts.Options) { o.Normalize = false }
}

func makeOptions(options []Option) opts.Options {
	ret := opts.GetDefaultOptions()
	for _, fn := range options {
		fn(&ret)
	}
	if ret.Logger == nil {
		ret.Logger = logger
	}
	return ret
}
