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

package debug

import (
	"sync/atomic"

	"github.com/cloudwego/regions/internal/cfg"
	"github.com/cloudwego/regions/internal/region"
)

// A Stats records statistics about the analyzed methods.
type Stats struct {
	Graph GraphStats
	Tree  TreeStats
}

// A GraphStats records statistics about the block graphs built so far.
type GraphStats struct {
	Count  int
	Blocks int
}

// A TreeStats records statistics about region structuring.
type TreeStats struct {
	Count  int
	Failed int
}

// GetStats returns statistics of the analysis since the process started.
func GetStats() Stats {
	return Stats{
		Graph: GraphStats{
			Count:  int(atomic.LoadUint64(&cfg.GraphCount)),
			Blocks: int(atomic.LoadUint64(&cfg.BlockCount)),
		},
		Tree: TreeStats{
			Count:  int(atomic.LoadUint64(&region.TreeCount)),
			Failed: int(atomic.LoadUint64(&region.FailedCount)),
		},
	}
}
