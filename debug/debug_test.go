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
	"testing"

	"github.com/cloudwego/regions"
	"github.com/cloudwego/regions/internal/ir"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"
)

func TestDebug_GetStats(t *testing.T) {
	x := ir.Named(0, "x", ir.Int)
	lg := log.NewLogger(log.DiscardHandler())
	before := GetStats()

	/* one structured method */
	regions.Analyze(&regions.Method{
		Name: "ok",
		Blocks: []regions.RawBlock{
			{Offset: 0, Succ: []int{1}, Insns: []*regions.Insn{ir.Invoke(0)}},
			{Offset: 1, Insns: []*regions.Insn{ir.Return(1)}},
		},
	}, regions.WithLogger(lg))

	/* one that fails while structuring */
	regions.Analyze(&regions.Method{
		Name: "bad",
		Blocks: []regions.RawBlock{
			{Offset: 0, Succ: []int{2, 3}, Insns: []*regions.Insn{ir.Nop(0), ir.IfZ(1, x, ir.EQ, 2)}},
			{Offset: 2, Insns: []*regions.Insn{ir.Return(2)}},
			{Offset: 3, Insns: []*regions.Insn{ir.Return(3)}},
		},
	}, regions.WithLogger(lg))

	/* counters only grow */
	after := GetStats()
	require.Equal(t, before.Graph.Count+2, after.Graph.Count)
	require.Equal(t, before.Graph.Blocks+5, after.Graph.Blocks)
	require.Equal(t, before.Tree.Count+1, after.Tree.Count)
	require.Equal(t, before.Tree.Failed+1, after.Tree.Failed)
}
