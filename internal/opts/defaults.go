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

package opts

import (
	"os"
	"strconv"

	"github.com/klauspost/cpuid/v2"
)

const (
	_DefaultMaxCondPasses = 64 // cutoff at 64 condition rewriting passes
)

var (
	MaxWorkers    = parseOrDefault("REGIONS_MAX_WORKERS", defaultWorkers(), 0)
	MaxCondPasses = parseOrDefault("REGIONS_MAX_COND_PASSES", _DefaultMaxCondPasses, 0)
	DumpDir       = os.Getenv("REGIONS_DUMP_DIR")
)

func defaultWorkers() int {
	if n := cpuid.CPU.LogicalCores; n <= 0 {
		return 1
	} else {
		return n
	}
}

func parseOrDefault(key string, def int, min int) int {
	if env := os.Getenv(key); env == "" {
		return def
	} else if val, err := strconv.ParseUint(env, 0, 64); err != nil {
		panic("regions: invalid value for " + key)
	} else if ret := int(val); ret <= min {
		panic("regions: value too small for " + key)
	} else {
		return ret
	}
}
