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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/cloudwego/regions/internal/ir"
	"github.com/cloudwego/regions/internal/region"
	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

var (
	rx = ir.Named(0, "x", ir.Int)
	re = ir.Named(1, "e", ir.Unknown)
)

func diamond(name string) *Method {
	return &Method{
		Name: name,
		Blocks: []RawBlock{
			{Offset: 0x00, Succ: []int{0x04, 0x08}, Insns: []*Insn{ir.IfZ(0x00, rx, ir.GT, 0x04)}},
			{Offset: 0x04, Succ: []int{0x0c}, Insns: []*Insn{ir.Invoke(0x04), ir.Goto(0x05, 0x0c)}},
			{Offset: 0x08, Succ: []int{0x0c}, Insns: []*Insn{ir.Invoke(0x08), ir.Goto(0x09, 0x0c)}},
			{Offset: 0x0c, Insns: []*Insn{ir.Return(0x0c)}},
		},
	}
}

func guarded(name string) *Method {
	return &Method{
		Name: name,
		Blocks: []RawBlock{
			{Offset: 0x00, Succ: []int{0x02}, Insns: []*Insn{ir.Invoke(0x00)}},
			{Offset: 0x02, Insns: []*Insn{ir.Return(0x02)}},
			{Offset: 0x10, Insns: []*Insn{ir.MoveException(0x10, re), ir.Return(0x11)}},
		},
		Catches: []CatchEntry{
			{Start: 0x00, End: 0x02, Handler: 0x10},
		},
	}
}

func unknownTarget(name string) *Method {
	return &Method{
		Name: name,
		Blocks: []RawBlock{
			{Offset: 0x00, Succ: []int{0x40}, Insns: []*Insn{ir.Goto(0x00, 0x40)}},
		},
	}
}

func fatHeader(name string) *Method {
	return &Method{
		Name: name,
		Blocks: []RawBlock{
			{Offset: 0x00, Succ: []int{0x04, 0x08}, Insns: []*Insn{ir.Nop(0x00), ir.IfZ(0x01, rx, ir.GT, 0x04)}},
			{Offset: 0x04, Insns: []*Insn{ir.Return(0x04)}},
			{Offset: 0x08, Insns: []*Insn{ir.Return(0x08)}},
		},
	}
}

func TestAnalyze_Diamond(t *testing.T) {
	ret := Analyze(diamond("diamond"))
	require.NoError(t, ret.Err)
	require.False(t, ret.Fallback)
	require.NotNil(t, ret.Tree)
	require.Len(t, ret.Graph.Blocks, 4)

	/* one if and the return */
	subs := ret.Tree.Root.SubBlocks()
	require.Len(t, subs, 2, spew.Sdump(subs))
	require.IsType(t, new(region.If), subs[0])
}

func TestAnalyze_TryCatch(t *testing.T) {
	ret := Analyze(guarded("guarded"))
	require.NoError(t, ret.Err)

	/* the try, then the return */
	subs := ret.Tree.Root.SubBlocks()
	require.Len(t, subs, 2, spew.Sdump(subs))
	tc := subs[0].(*region.TryCatch)
	require.Len(t, ret.Tree.HandlerRegions(tc), 1)
	require.True(t, ret.Tree.ContainsRegion(ret.Tree.Root, ret.Tree.HandlerRegions(tc)[0]))
}

func TestAnalyze_Malformed(t *testing.T) {
	ret := Analyze(unknownTarget("broken"))
	require.Error(t, ret.Err)
	require.True(t, ret.Fallback)
	require.Nil(t, ret.Tree)
	require.True(t, IsMalformed(ret.Err))
	require.False(t, IsInvariant(ret.Err))

	/* stamped with the method and the phase */
	e := errors.Cause(ret.Err).(*AnalysisError)
	require.Equal(t, "broken", e.Method)
	require.Equal(t, _PhaseBuild, e.Phase)
	require.Contains(t, ret.Err.Error(), "method broken")
}

func TestAnalyze_Invariant(t *testing.T) {
	ret := Analyze(fatHeader("fat"))
	require.True(t, ret.Fallback)
	require.True(t, IsInvariant(ret.Err))
	require.NotNil(t, ret.Graph)

	/* failed while structuring */
	e := errors.Cause(ret.Err).(*AnalysisError)
	require.Equal(t, _PhaseStructure, e.Phase)
	require.False(t, IsMalformed(nil))
	require.False(t, IsInvariant(fmt.Errorf("not an analysis error")))
}

func TestAnalyze_Logging(t *testing.T) {
	buf := new(bytes.Buffer)
	lg := log.NewLogger(log.NewTerminalHandlerWithLevel(buf, log.LevelDebug, false))

	/* one warning for the failed method */
	Analyze(fatHeader("fat"), WithLogger(lg))
	require.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("method abandoned")), buf.String())
	require.Contains(t, buf.String(), "kind=InvariantViolation")
	require.Contains(t, buf.String(), "phase=structure")

	/* debug output for a structured one */
	buf.Reset()
	Analyze(diamond("ok"), WithLogger(lg))
	require.Contains(t, buf.String(), "method structured")
	require.NotContains(t, buf.String(), "method abandoned")
}

func TestAnalyze_DumpDir(t *testing.T) {
	dir := t.TempDir()
	lg := log.NewLogger(log.DiscardHandler())

	/* only failing methods with a graph are dumped */
	Analyze(fatHeader("pkg/Foo.bar(I)V"), WithDumpDir(dir), WithLogger(lg))
	Analyze(diamond("pkg/Foo.baz()V"), WithDumpDir(dir), WithLogger(lg))

	/* check the dumped file */
	buf, err := os.ReadFile(filepath.Join(dir, "pkg_Foo.bar_I_V.dot"))
	require.NoError(t, err)
	require.Contains(t, string(buf), "digraph")
	_, err = os.Stat(filepath.Join(dir, "pkg_Foo.baz__V.dot"))
	require.True(t, os.IsNotExist(err))
}

func TestAnalyze_WithoutNormalize(t *testing.T) {
	m := &Method{
		Name: "compound",
		Blocks: []RawBlock{
			{Offset: 0x00, Succ: []int{0x02, 0x0c}, Insns: []*Insn{ir.IfZ(0x00, rx, ir.LE, 0x0c)}},
			{Offset: 0x02, Succ: []int{0x04, 0x0c}, Insns: []*Insn{ir.IfZ(0x02, rx, ir.GE, 0x0c)}},
			{Offset: 0x04, Succ: []int{0x0c}, Insns: []*Insn{ir.Invoke(0x04)}},
			{Offset: 0x0c, Insns: []*Insn{ir.Return(0x0c)}},
		},
	}

	/* the raw shape nests the ifs in the else branches */
	ret := Analyze(m, WithoutNormalize())
	require.NoError(t, ret.Err)
	r := ret.Tree.Root.SubBlocks()[0].(*region.If)
	require.Nil(t, r.Then)
	require.IsType(t, new(region.If), r.Else)
}

func TestAnalyzeAll_Isolation(t *testing.T) {
	var methods []*Method
	fk := gofakeit.New(1234)
	lg := log.NewLogger(log.DiscardHandler())

	/* a random mix of good and broken methods */
	for i := 0; i < 64; i++ {
		name := fmt.Sprintf("%s_%d", fk.Word(), i)
		switch fk.Number(0, 3) {
		case 0:
			methods = append(methods, diamond(name))
		case 1:
			methods = append(methods, guarded(name))
		case 2:
			methods = append(methods, unknownTarget(name))
		default:
			methods = append(methods, fatHeader(name))
		}
	}

	/* results line up with the input */
	res := AnalyzeAll(methods, WithWorkers(4), WithLogger(lg))
	require.Len(t, res, len(methods))
	for i, ret := range res {
		require.Same(t, methods[i], ret.Method)
		switch methods[i].Blocks[0].Insns[0].Op {
		case ir.OP_goto, ir.OP_nop:
			require.True(t, ret.Fallback, methods[i].Name)
			require.Error(t, ret.Err)
		default:
			require.False(t, ret.Fallback, methods[i].Name)
			require.NotNil(t, ret.Tree)
		}
	}
}

func TestOptions_InvalidWorkers(t *testing.T) {
	require.Panics(t, func() { WithWorkers(0) })
	require.Panics(t, func() { WithWorkers(-3) })
}
