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

package region

import (
    `testing`

    `github.com/cloudwego/regions/internal/attr`
    `github.com/cloudwego/regions/internal/cfg`
    `github.com/cloudwego/regions/internal/cond`
    `github.com/cloudwego/regions/internal/ir`
    `github.com/cloudwego/regions/internal/trycatch`
    `github.com/cloudwego/regions/internal/utils`
    `github.com/davecgh/go-spew/spew`
    `github.com/stretchr/testify/require`
)

var (
    x = ir.Named(0, "x", ir.Int)
    y = ir.Named(1, "y", ir.Int)
    i = ir.Named(2, "i", ir.Int)
    e = ir.Named(3, "e", ir.Unknown)
)

type _Blk struct {
    off   int
    insns []*ir.Insn
    succ  []int
}

func blk(off int, succ []int, insns ...*ir.Insn) _Blk {
    return _Blk { off: off, insns: insns, succ: succ }
}

// prepare runs everything structuring depends on.
func prepare(t *testing.T, table []trycatch.Entry, blks ..._Blk) (*cfg.Graph, *trycatch.Model) {
    var raw []cfg.Raw
    var insns []*ir.Insn
    for _, b := range blks {
        insns = append(insns, b.insns...)
    }

    /* build the exception model */
    m, err := trycatch.Attach(insns, table)
    require.NoError(t, err)

    /* exception edges go last */
    for _, b := range blks {
        raw = append(raw, cfg.Raw {
            Offset : b.off,
            Insns  : b.insns,
            Succ   : append(b.succ, trycatch.ExceptionSuccessors(b.insns)...),
        })
    }

    /* build and analyze the graph */
    g, err := cfg.Build(raw)
    require.NoError(t, err)
    g.ComputeDominators()
    g.MarkLoops()
    require.NoError(t, trycatch.Process(g, m))
    g.UpdateCleanSuccessors()
    g.Lock()
    return g, m
}

func structure(t *testing.T, table []trycatch.Entry, blks ..._Blk) *Tree {
    g, m := prepare(t, table, blks...)
    tr, err := Make(g, m)
    require.NoError(t, err)
    require.NoError(t, Validate(tr), spew.Sdump(tr.Root))
    return tr
}

func raised(fn func()) (err error) {
    defer utils.Recover(&err)
    fn()
    return
}

func checkAgreement(t *testing.T, tr *Tree) {
    var all []Region
    tr.Regions(func(r Region) { all = append(all, r) })
    for _, c := range all {
        for _, r := range all {
            slow := tr.searchRegion(c, r, make(map[Region]bool))
            require.Equal(t, slow, tr.ContainsRegion(c, r), "%s in %s", r, c)
        }
    }
}

func diamond(t *testing.T) *Tree {
    return structure(t, nil,
        blk(0x00, []int { 0x04, 0x08 }, ir.IfZ(0x00, x, ir.GT, 0x04)),
        blk(0x04, []int { 0x0c }, ir.Const(0x04, y, ir.L(1, ir.Int)), ir.Goto(0x05, 0x0c)),
        blk(0x08, []int { 0x0c }, ir.Const(0x08, y, ir.L(2, ir.Int)), ir.Goto(0x09, 0x0c)),
        blk(0x0c, nil, ir.Return(0x0c, y)),
    )
}

func TestRegion_DiamondIf(t *testing.T) {
    tr := diamond(t)
    g := tr.Graph
    E, T, F, M := g.BlockAt(0x00), g.BlockAt(0x04), g.BlockAt(0x08), g.BlockAt(0x0c)

    /* one if region, then the merge block */
    subs := tr.Root.SubBlocks()
    require.Len(t, subs, 2, spew.Sdump(subs))
    r, ok := subs[0].(*If)
    require.True(t, ok)
    require.Same(t, M, subs[1])
    require.Same(t, E, r.Header)
    require.Same(t, T, r.Then)
    require.Same(t, F, r.Else)
    require.Equal(t, "x > 0", r.Cond.String())
    require.Equal(t, []Container { E, T, F }, r.SubBlocks())

    /* inverting swaps the branches and negates the condition */
    c := r.Cond
    r.Invert()
    require.Equal(t, "x <= 0", r.Cond.String())
    require.Same(t, F, r.Then)
    require.Same(t, T, r.Else)

    /* and is its own inverse */
    r.Invert()
    require.True(t, cond.Equal(cond.Simplify(c), cond.Simplify(r.Cond)))
    require.Same(t, T, r.Then)
    require.Same(t, F, r.Else)

    /* normalizing keeps a diamond as it is */
    Normalize(tr)
    require.Equal(t, "x > 0", r.Cond.String())
    require.NoError(t, Validate(tr))
}

func TestRegion_Queries(t *testing.T) {
    tr := diamond(t)
    g := tr.Graph
    E, T, F, M := g.BlockAt(0x00), g.BlockAt(0x04), g.BlockAt(0x08), g.BlockAt(0x0c)
    r := tr.Root.SubBlocks()[0].(*If)

    /* shape of the method */
    require.True(t, HasExitBlock(tr.Root))
    require.False(t, HasExitEdge(tr.Root))
    require.True(t, HasExitEdge(r))
    require.False(t, HasBreakInsn(tr.Root))
    require.Equal(t, 6, InsnsCount(tr.Root))
    require.True(t, NotEmpty(r))
    require.False(t, IsEmpty(tr.Root))
    require.Nil(t, LastInsn(r))
    require.Equal(t, ir.OP_return, LastInsn(tr.Root).Op)

    /* membership */
    require.True(t, ContainsBlock(r, F))
    require.False(t, ContainsBlock(r, M))
    set := make(map[*cfg.Block]bool)
    CollectBlocks(tr.Root, set)
    CollectBlocks(r, set)
    require.Len(t, set, 4)

    /* dominance and reachability over every block */
    require.True(t, tr.IsDominatedBy(E, r))
    require.True(t, tr.IsDominatedBy(E, tr.Root))
    require.False(t, tr.IsDominatedBy(T, r))
    require.True(t, tr.HasPathThroughBlock(E, r))
    require.False(t, tr.HasPathThroughBlock(T, r))
    require.True(t, tr.HasPathThroughBlock(F, M))
}

func TestRegion_PreConditionLoop(t *testing.T) {
    tr := structure(t, nil,
        blk(0x00, []int { 0x02 }, ir.Const(0x00, i, ir.L(0, ir.Int))),
        blk(0x02, []int { 0x04, 0x0a }, ir.IfZ(0x02, i, ir.GE, 0x0a)),
        blk(0x04, []int { 0x02 }, ir.Arith(0x04, i, i, ir.L(1, ir.Int)), ir.Goto(0x05, 0x02)),
        blk(0x0a, nil, ir.Return(0x0a)),
    )

    /* init, loop, return */
    g := tr.Graph
    subs := tr.Root.SubBlocks()
    require.Len(t, subs, 3, spew.Sdump(subs))
    lr, ok := subs[1].(*Loop)
    require.True(t, ok)

    /* the header tests for staying in the loop */
    require.False(t, lr.IsEndless())
    require.Same(t, g.BlockAt(0x02), lr.Header)
    require.Equal(t, "i < 0", lr.Cond.String())
    require.Same(t, g.BlockAt(0x04), lr.Body)
    require.Same(t, g.BlockAt(0x0a), subs[2])
    checkAgreement(t, tr)
}

func TestRegion_EndlessLoopBreak(t *testing.T) {
    tr := structure(t, nil,
        blk(0x00, []int { 0x02 }, ir.Nop(0x00)),
        blk(0x02, []int { 0x04 }, ir.Invoke(0x02)),
        blk(0x04, []int { 0x06, 0x0a }, ir.IfZ(0x04, x, ir.EQ, 0x0a)),
        blk(0x06, []int { 0x02 }, ir.Invoke(0x06), ir.Goto(0x07, 0x02)),
        blk(0x0a, nil, ir.Return(0x0a)),
    )

    /* the loop sits between the entry and the return */
    subs := tr.Root.SubBlocks()
    require.Len(t, subs, 3, spew.Sdump(subs))
    lr := subs[1].(*Loop)
    require.True(t, lr.IsEndless())

    /* header, the breaking if, then the back edge source */
    body := lr.Body.(*Sequence).SubBlocks()
    require.Len(t, body, 3)
    r := body[1].(*If)
    require.Equal(t, "x == 0", r.Cond.String())
    require.True(t, HasBreakInsn(r.Then))
    require.True(t, HasBreakInsn(r))
    require.Nil(t, r.Else)
    require.False(t, HasBreakInsn(lr))

    /* the inserted break is not a graph block */
    bb := r.Then.(*cfg.Block)
    require.True(t, bb.Detached())
    require.True(t, tr.IsDominatedBy(tr.Graph.Entry, r))
    checkAgreement(t, tr)
}

func TestRegion_CompoundCondition(t *testing.T) {
    tr := structure(t, nil,
        blk(0x00, []int { 0x02, 0x0c }, ir.IfZ(0x00, x, ir.LE, 0x0c)),
        blk(0x02, []int { 0x04, 0x0c }, ir.IfZ(0x02, y, ir.LE, 0x0c)),
        blk(0x04, []int { 0x0c }, ir.Invoke(0x04)),
        blk(0x0c, nil, ir.Return(0x0c)),
    )

    /* raw structure nests two else-only ifs */
    g := tr.Graph
    r := tr.Root.SubBlocks()[0].(*If)
    require.Nil(t, r.Then)
    require.IsType(t, new(If), r.Else)

    /* normalized into one if over a conjunction */
    Normalize(tr)
    require.Equal(t, "(x > 0 && y > 0)", r.Cond.String())
    require.Same(t, g.BlockAt(0x04), r.Then)
    require.Nil(t, r.Else)
    require.Equal(t, []*cfg.Block { g.BlockAt(0x00), g.BlockAt(0x02) }, r.Headers())
    require.NoError(t, Validate(tr))
}

func TestRegion_Switch(t *testing.T) {
    tr := structure(t, nil,
        blk(0x00, []int { 0x04, 0x08, 0x04, 0x0c }, ir.Switch(0x00, x, []int64 { 1, 2, 3 }, []int { 0x04, 0x08, 0x04 })),
        blk(0x04, []int { 0x0c }, ir.Invoke(0x04), ir.Goto(0x05, 0x0c)),
        blk(0x08, []int { 0x0c }, ir.Invoke(0x08), ir.Goto(0x09, 0x0c)),
        blk(0x0c, nil, ir.Return(0x0c)),
    )

    /* cases grouped by target, no default */
    g := tr.Graph
    subs := tr.Root.SubBlocks()
    require.Len(t, subs, 2, spew.Sdump(subs))
    sw := subs[0].(*Switch)
    require.Len(t, sw.Cases, 2)
    require.Equal(t, []int64 { 1, 3 }, sw.Cases[0].Keys)
    require.Same(t, g.BlockAt(0x04), sw.Cases[0].Body)
    require.Equal(t, []int64 { 2 }, sw.Cases[1].Keys)
    require.Nil(t, sw.Default)
    require.Same(t, g.BlockAt(0x0c), subs[1])
    require.Nil(t, LastInsn(sw))
}

func sharedHandler(t *testing.T) (*Tree, *trycatch.Model) {
    g, m := prepare(t,
        []trycatch.Entry {
            { Start: 0x00, End: 0x04, Handler: 0x20 },
            { Start: 0x08, End: 0x0c, Handler: 0x20 },
        },
        blk(0x00, []int { 0x04 }, ir.Invoke(0x00)),
        blk(0x04, []int { 0x08 }, ir.Invoke(0x04)),
        blk(0x08, []int { 0x0c }, ir.Invoke(0x08)),
        blk(0x0c, nil, ir.Return(0x0c)),
        blk(0x20, nil, ir.MoveException(0x20, e), ir.Return(0x21)),
    )
    tr, err := Make(g, m)
    require.NoError(t, err)
    require.NoError(t, Validate(tr))
    return tr, m
}

func TestRegion_SharedHandler(t *testing.T) {
    tr, m := sharedHandler(t)
    require.Len(t, m.Handlers, 1)
    h := m.Handlers[0]

    /* try, plain block, try, return */
    subs := tr.Root.SubBlocks()
    require.Len(t, subs, 4, spew.Sdump(subs))
    tc1 := subs[0].(*TryCatch)
    tc2 := subs[2].(*TryCatch)
    require.NotSame(t, tc1.TryBlock, tc2.TryBlock)

    /* one handler body, registered once */
    hr := tr.HandlerRegion(h)
    require.NotNil(t, hr)
    require.True(t, hr.Attrs().Has(attr.ExcHandlerRegion))
    require.Same(t, h, trycatch.HandlerOf(hr.Attrs()))
    require.Equal(t, []Region { hr }, tr.HandlerRegions(tc1))
    require.Equal(t, []Region { hr }, tr.HandlerRegions(tc2))
    require.Nil(t, tr.HandlerRegions(tr.Root))

    /* reachable from both tries */
    require.True(t, tr.ContainsRegion(tc1, hr))
    require.True(t, tr.ContainsRegion(tc2, hr))
    require.True(t, tr.ContainsRegion(tr.Root, hr))
    require.False(t, tr.ContainsRegion(tc2, tc1))
    require.False(t, tr.ContainsRegion(hr, tc1))
    checkAgreement(t, tr)
}

func TestRegion_FinallyRegion(t *testing.T) {
    tr := structure(t,
        []trycatch.Entry {
            { Start: 0x00, End: 0x02, Handler: 0x20 },
        },
        blk(0x00, []int { 0x02 }, ir.Invoke(0x00)),
        blk(0x02, nil, ir.Return(0x02)),
        blk(0x20, nil, ir.MoveException(0x20, e), ir.Invoke(0x21), ir.Throw(0x22, e)),
    )

    /* the rethrowing catch-all is the finally body */
    tc := tr.Root.SubBlocks()[0].(*TryCatch)
    fr := tr.FinallyRegion(tc.TryBlock)
    require.NotNil(t, fr)
    require.True(t, fr.Attrs().Has(attr.FinallyHandler))
    require.Equal(t, []Region { fr }, tr.HandlerRegions(tc))
    require.True(t, HasExitBlock(fr))
}

func TestRegion_IfHeaderInvariant(t *testing.T) {
    g, m := prepare(t, nil,
        blk(0x00, []int { 0x04, 0x08 }, ir.Nop(0x00), ir.IfZ(0x01, x, ir.GT, 0x04)),
        blk(0x04, nil, ir.Return(0x04)),
        blk(0x08, nil, ir.Return(0x08)),
    )
    _, err := Make(g, m)
    require.Error(t, err)
    require.Equal(t, utils.InvariantViolation, err.(*utils.AnalysisError).Kind)
}

type _Foreign struct {
    attr.Node
}

func (*_Foreign) String() string {
    return "foreign"
}

func TestRegion_UnknownContainer(t *testing.T) {
    seq := NewSequence(nil)
    seq.Append(&_Foreign{})

    /* every query rejects it */
    for _, fn := range []func() {
        func() { InsnsCount(seq) },
        func() { NotEmpty(seq) },
        func() { HasExitEdge(seq) },
        func() { CollectBlocks(seq, make(map[*cfg.Block]bool)) },
    } {
        err := raised(fn)
        require.Error(t, err)
        require.Equal(t, utils.MalformedControlFlow, err.(*utils.AnalysisError).Kind)
        require.Contains(t, err.Error(), "unknown container type: *region._Foreign")
    }
}

func TestRegion_ReplaceSubBlock(t *testing.T) {
    tr := diamond(t)
    g := tr.Graph
    r := tr.Root.SubBlocks()[0].(*If)
    seq := tr.Root.(*Sequence)

    /* absent targets leave the tree untouched */
    before := seq.String()
    require.False(t, seq.ReplaceSubBlock(g.BlockAt(0x04), g.BlockAt(0x08)))
    require.Equal(t, before, seq.String())
    require.False(t, r.ReplaceSubBlock(r.Header, g.BlockAt(0x0c)))
    require.Same(t, g.BlockAt(0x00), r.Header)

    /* a branch is replaced and adopted */
    wrap := NewSequence(nil)
    wrap.Append(g.BlockAt(0x04))
    require.True(t, r.ReplaceSubBlock(g.BlockAt(0x04), wrap))
    require.Same(t, wrap, r.Then)
    require.Equal(t, Region(r), wrap.Parent())
    require.True(t, tr.ContainsRegion(tr.Root, wrap))
}

func orChain(t *testing.T) *Tree {
    return structure(t, nil,
        blk(0x00, []int { 0x04, 0x08 }, ir.IfZ(0x00, x, ir.GT, 0x08)),
        blk(0x04, []int { 0x08, 0x0c }, ir.IfZ(0x04, y, ir.GT, 0x08)),
        blk(0x08, []int { 0x10 }, ir.Const(0x08, i, ir.L(1, ir.Int)), ir.Goto(0x09, 0x10)),
        blk(0x0c, []int { 0x10 }, ir.Const(0x0c, i, ir.L(2, ir.Int)), ir.Goto(0x0d, 0x10)),
        blk(0x10, nil, ir.Return(0x10, i)),
    )
}

func TestRegion_OrChain(t *testing.T) {
    tr := orChain(t)
    g := tr.Graph

    /* one if over both tests, then the join */
    subs := tr.Root.SubBlocks()
    require.Len(t, subs, 2, spew.Sdump(subs))
    r := subs[0].(*If)
    require.Equal(t, "(x > 0 || y > 0)", r.Cond.String())
    require.Equal(t, []*cfg.Block { g.BlockAt(0x00), g.BlockAt(0x04) }, r.Headers())
    require.Same(t, g.BlockAt(0x08), r.Then)
    require.Same(t, g.BlockAt(0x0c), r.Else)
    require.Same(t, g.BlockAt(0x10), subs[1])

    /* the merge point post-dominates the whole chain */
    require.Same(t, g.BlockAt(0x10), g.BlockAt(0x00).IPDom())
    require.Same(t, g.BlockAt(0x10), g.BlockAt(0x04).IPDom())

    /* normalizing keeps it */
    Normalize(tr)
    require.Equal(t, "(x > 0 || y > 0)", r.Cond.String())
    require.NoError(t, Validate(tr))
    checkAgreement(t, tr)
}

func TestRegion_SharedJoin(t *testing.T) {
    tr := structure(t, nil,
        blk(0x00, []int { 0x02, 0x08 }, ir.IfZ(0x00, x, ir.LE, 0x08)),
        blk(0x02, []int { 0x14 }, ir.Invoke(0x02), ir.Goto(0x03, 0x14)),
        blk(0x08, []int { 0x0a, 0x10 }, ir.IfZ(0x08, y, ir.LE, 0x10)),
        blk(0x0a, []int { 0x14 }, ir.Invoke(0x0a), ir.Goto(0x0b, 0x14)),
        blk(0x10, []int { 0x14 }, ir.Invoke(0x10)),
        blk(0x14, nil, ir.Return(0x14)),
    )

    /* else-if chain with one join after it */
    g := tr.Graph
    subs := tr.Root.SubBlocks()
    require.Len(t, subs, 2, spew.Sdump(subs))
    require.Same(t, g.BlockAt(0x14), subs[1])

    /* the outer if */
    r := subs[0].(*If)
    require.Equal(t, "x <= 0", r.Cond.String())
    require.Same(t, g.BlockAt(0x02), r.Else)

    /* the inner one keeps its own condition */
    in := r.Then.(*If)
    require.Equal(t, "y <= 0", in.Cond.String())
    require.Same(t, g.BlockAt(0x10), in.Then)
    require.Same(t, g.BlockAt(0x0a), in.Else)
    require.False(t, ContainsBlock(r, g.BlockAt(0x14)))
}

func TestRegion_OrChainBreak(t *testing.T) {
    tr := structure(t, nil,
        blk(0x00, []int { 0x02 }, ir.Nop(0x00)),
        blk(0x02, []int { 0x04 }, ir.Invoke(0x02)),
        blk(0x04, []int { 0x06, 0x10 }, ir.IfZ(0x04, x, ir.EQ, 0x10)),
        blk(0x06, []int { 0x08, 0x10 }, ir.IfZ(0x06, y, ir.EQ, 0x10)),
        blk(0x08, []int { 0x02 }, ir.Invoke(0x08), ir.Goto(0x09, 0x02)),
        blk(0x10, nil, ir.Return(0x10)),
    )

    /* entry, loop, return */
    g := tr.Graph
    subs := tr.Root.SubBlocks()
    require.Len(t, subs, 3, spew.Sdump(subs))
    lr := subs[1].(*Loop)
    require.True(t, lr.IsEndless())

    /* both tests leave through one break */
    body := lr.Body.(*Sequence).SubBlocks()
    require.Len(t, body, 3, spew.Sdump(body))
    r := body[1].(*If)
    require.Equal(t, "(x == 0 || y == 0)", r.Cond.String())
    require.Equal(t, []*cfg.Block { g.BlockAt(0x04), g.BlockAt(0x06) }, r.Headers())
    require.True(t, HasBreakInsn(r.Then))
    require.Nil(t, r.Else)
    require.Same(t, g.BlockAt(0x08), body[2])
}

func TestRegion_TryInLoop(t *testing.T) {
    tr := structure(t,
        []trycatch.Entry {
            { Start: 0x04, End: 0x06, Handler: 0x20 },
        },
        blk(0x00, []int { 0x02 }, ir.Const(0x00, i, ir.L(0, ir.Int))),
        blk(0x02, []int { 0x04, 0x10 }, ir.IfZ(0x02, i, ir.GE, 0x10)),
        blk(0x04, []int { 0x06 }, ir.Invoke(0x04)),
        blk(0x06, []int { 0x02 }, ir.Arith(0x06, i, i, ir.L(1, ir.Int)), ir.Goto(0x07, 0x02)),
        blk(0x10, nil, ir.Return(0x10)),
        blk(0x20, []int { 0x06 }, ir.MoveException(0x20, e), ir.Goto(0x21, 0x06)),
    )

    /* init, loop, return */
    g := tr.Graph
    subs := tr.Root.SubBlocks()
    require.Len(t, subs, 3, spew.Sdump(subs))
    lr := subs[1].(*Loop)
    require.Same(t, g.BlockAt(0x02), lr.Header)

    /* the try sits in the body, before the increment */
    body := lr.Body.(*Sequence).SubBlocks()
    require.Len(t, body, 2, spew.Sdump(body))
    tc := body[0].(*TryCatch)
    require.Same(t, g.BlockAt(0x04), tc.Try)
    require.Same(t, g.BlockAt(0x06), body[1])

    /* the handler rejoins the body at the increment */
    hrs := tr.HandlerRegions(tc)
    require.Len(t, hrs, 1)
    require.Equal(t, Region(tc), hrs[0].Parent())
    require.True(t, ContainsBlock(hrs[0], g.BlockAt(0x20)))
    require.True(t, tr.ContainsRegion(lr, hrs[0]))
    checkAgreement(t, tr)
}

func TestRegion_IrreducibleCycle(t *testing.T) {
    g, m := prepare(t, nil,
        blk(0x00, []int { 0x04, 0x08 }, ir.IfZ(0x00, x, ir.GT, 0x08)),
        blk(0x04, []int { 0x08 }, ir.Invoke(0x04), ir.Goto(0x05, 0x08)),
        blk(0x08, []int { 0x0c, 0x04 }, ir.IfZ(0x08, y, ir.GT, 0x04)),
        blk(0x0c, nil, ir.Return(0x0c)),
    )

    /* a cycle entered from both sides has no loop header */
    require.Empty(t, cfg.LoopsOf(g.BlockAt(0x04)))
    require.Empty(t, cfg.LoopsOf(g.BlockAt(0x08)))

    /* so one of its edges cannot be placed */
    _, err := Make(g, m)
    require.Error(t, err)
    require.Equal(t, utils.InvariantViolation, err.(*utils.AnalysisError).Kind)
}

func TestRegion_LostEdge(t *testing.T) {
    tr := diamond(t)
    g := tr.Graph
    r := tr.Root.SubBlocks()[0].(*If)
    seq := tr.Root.(*Sequence)

    /* move the join into one branch, every block is still placed */
    wrap := NewSequence(nil)
    wrap.Append(g.BlockAt(0x04))
    wrap.Append(g.BlockAt(0x0c))
    r.SetThen(wrap)
    seq.blocks = seq.blocks[:1]

    /* the other branch no longer reaches it */
    err := Validate(tr)
    require.Error(t, err)
    require.Equal(t, utils.InvariantViolation, err.(*utils.AnalysisError).Kind)
    require.Contains(t, err.Error(), "is not expressed by the region tree")
}

func TestRegion_HandlersShareEntry(t *testing.T) {
    ioe := ir.Object("java.io.IOException")
    tr, m := func() (*Tree, *trycatch.Model) {
        g, m := prepare(t,
            []trycatch.Entry {
                { Start: 0x00, End: 0x02, Handler: 0x20, Type: &ioe },
                { Start: 0x00, End: 0x02, Handler: 0x20 },
            },
            blk(0x00, []int { 0x02 }, ir.Invoke(0x00)),
            blk(0x02, nil, ir.Return(0x02)),
            blk(0x20, nil, ir.MoveException(0x20, e), ir.Return(0x21)),
        )
        tr, err := Make(g, m)
        require.NoError(t, err)
        require.NoError(t, Validate(tr))
        return tr, m
    }()

    /* two handlers, one body */
    require.Len(t, m.Handlers, 2)
    h1, h2 := m.Handlers[0], m.Handlers[1]
    hr := tr.HandlerRegion(h1)
    require.NotNil(t, hr)
    require.Same(t, hr, tr.HandlerRegion(h2))
    require.True(t, NotEmpty(hr))
    require.True(t, ContainsBlock(hr, tr.Graph.BlockAt(0x20)))

    /* tagged with the first handler */
    require.Same(t, h1, trycatch.HandlerOf(hr.Attrs()))
    tc := tr.Root.SubBlocks()[0].(*TryCatch)
    for _, v := range tr.HandlerRegions(tc) {
        require.Same(t, hr, v)
    }
}

func TestRegion_SiblingBreaks(t *testing.T) {
    g, _ := prepare(t, nil,
        blk(0x00, []int { 0x02 }, ir.Nop(0x00)),
        blk(0x02, []int { 0x04 }, ir.Invoke(0x02)),
        blk(0x04, []int { 0x06, 0x10 }, ir.IfZ(0x04, x, ir.EQ, 0x10)),
        blk(0x06, []int { 0x08, 0x10 }, ir.IfZ(0x06, y, ir.EQ, 0x10)),
        blk(0x08, []int { 0x02 }, ir.Invoke(0x08), ir.Goto(0x09, 0x02)),
        blk(0x10, nil, ir.Return(0x10)),
    )

    /* two ifs breaking one after the other */
    tr := NewTree(g)
    root := NewSequence(nil)
    lr := NewLoop(root, cfg.LoopsOf(g.BlockAt(0x02))[0])
    body := NewSequence(lr)
    body.Append(g.BlockAt(0x02))
    for _, off := range []int { 0x04, 0x06 } {
        r, err := NewIf(body, g.BlockAt(off))
        require.NoError(t, err)
        r.SetThen(cfg.NewDetached(0x10, ir.Break(0x10)))
        body.Append(r)
    }
    body.Append(g.BlockAt(0x08))
    lr.SetBody(body)
    root.Append(g.BlockAt(0x00))
    root.Append(lr)
    root.Append(g.BlockAt(0x10))
    tr.Root = root
    require.NoError(t, Validate(tr))

    /* folded into one if over both conditions */
    new(CondMerge).Apply(tr)
    subs := body.SubBlocks()
    require.Len(t, subs, 3, spew.Sdump(subs))
    r := subs[1].(*If)
    require.Equal(t, "(x == 0 || y == 0)", r.Cond.String())
    require.Equal(t, []*cfg.Block { g.BlockAt(0x04), g.BlockAt(0x06) }, r.Headers())
    require.True(t, HasBreakInsn(r))
    require.NoError(t, Validate(tr))
}
