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
    `sync/atomic`

    `github.com/cloudwego/regions/internal/attr`
    `github.com/cloudwego/regions/internal/cfg`
    `github.com/cloudwego/regions/internal/cond`
    `github.com/cloudwego/regions/internal/ir`
    `github.com/cloudwego/regions/internal/trycatch`
    `github.com/cloudwego/regions/internal/utils`
    `github.com/oleiade/lane`
)

var (
    TreeCount   uint64 = 0
    FailedCount uint64 = 0
)

type _Seq interface {
    Region
    Append(c Container)
}

// _Frame bounds the traversal of one construct. Reaching any of its exits
// ends the sequence being built. Loop frames also know where the loop leaves
// to, so that jumps there and back to the header become break and continue.
type _Frame struct {
    exits map[*cfg.Block]bool
    loop  *cfg.LoopInfo
    out   *cfg.Block
    body  _Seq
}

func newFrame(exits ...*cfg.Block) *_Frame {
    ret := &_Frame { exits: make(map[*cfg.Block]bool, len(exits)) }
    for _, bb := range exits {
        if bb != nil {
            ret.exits[bb] = true
        }
    }
    return ret
}

type _Maker struct {
    t     *Tree
    g     *cfg.Graph
    stack []*_Frame
    done  map[*cfg.Block]bool
    tries map[*trycatch.TryBlock]bool
    loops map[*cfg.LoopInfo]bool
    hbody map[*cfg.Block]Region
}

// Make structures the graph into a region tree. Dominators, loops and the
// exception model must have been processed and the clean successors must be
// up to date. Handlers of m that no try region claims are structured on
// their own under the root.
func Make(g *cfg.Graph, m *trycatch.Model) (ret *Tree, err error) {
    defer count(&err)
    defer utils.Recover(&err)
    ret = newMaker(g).make(m)
    return
}

func count(err *error) {
    if *err != nil {
        atomic.AddUint64(&FailedCount, 1)
    } else {
        atomic.AddUint64(&TreeCount, 1)
    }
}

func newMaker(g *cfg.Graph) *_Maker {
    return &_Maker {
        t     : NewTree(g),
        g     : g,
        done  : make(map[*cfg.Block]bool),
        tries : make(map[*trycatch.TryBlock]bool),
        loops : make(map[*cfg.LoopInfo]bool),
        hbody : make(map[*cfg.Block]Region),
    }
}

func raise(err error) {
    if err != nil {
        utils.Raise(err.(*utils.AnalysisError))
    }
}

func unwrap(s *Sequence) Container {
    switch len(s.blocks) {
        case 0  : return nil
        case 1  : return s.blocks[0]
        default : return s
    }
}

func isHandlerEntry(bb *cfg.Block) bool {
    if bb.Contains(attr.ExcHandler) {
        return true
    } else {
        succ := bb.Successors()
        return bb.IsSynthetic() && len(succ) == 1 && succ[0].Contains(attr.ExcHandler)
    }
}

// better ranks exit candidates: blocks that continue somewhere come before
// blocks that leave the method, then lower offsets first.
func better(a *cfg.Block, b *cfg.Block) bool {
    if b == nil {
        return true
    }

    /* prefer blocks with successors */
    ea := len(a.Successors()) == 0
    eb := len(b.Successors()) == 0

    /* then by offset */
    if ea != eb {
        return !ea
    } else {
        return a.Offset < b.Offset
    }
}

func (self *_Maker) make(m *trycatch.Model) *Tree {
    root := NewSequence(nil)
    self.t.Root = root
    self.g.ComputePostDominators()
    self.fill(root, self.g.Entry)

    /* handlers not claimed by any try region */
    if m != nil {
        for _, h := range m.Handlers {
            if h.Block != nil && self.t.handlers[h] == nil {
                hr := self.handlerBody(root, h, nil)
                if h.Finally && h.TryBlock != nil {
                    self.t.SetFinallyRegion(h.TryBlock, hr)
                }
            }
        }
    }
    return self.t
}

func (self *_Maker) push(fr *_Frame) {
    self.stack = append(self.stack, fr)
}

func (self *_Maker) pop() {
    self.stack = self.stack[:len(self.stack) - 1]
}

func (self *_Maker) exitOf(bb *cfg.Block) *_Frame {
    for i := len(self.stack) - 1; i >= 0; i-- {
        if self.stack[i].exits[bb] {
            return self.stack[i]
        }
    }
    return nil
}

func (self *_Maker) innermostLoop() *_Frame {
    for i := len(self.stack) - 1; i >= 0; i-- {
        if self.stack[i].loop != nil {
            return self.stack[i]
        }
    }
    return nil
}

// jump reports whether reaching bb is a break or continue of the innermost loop.
func (self *_Maker) jump(bb *cfg.Block) bool {
    fr := self.exitOf(bb)
    if fr == nil || fr.loop == nil || fr != self.innermostLoop() {
        return false
    } else {
        return bb == fr.out || bb == fr.loop.Start
    }
}

// fill appends everything reachable from bb to seq until an exit of an
// enclosing construct is reached.
func (self *_Maker) fill(seq _Seq, bb *cfg.Block) {
    for bb != nil {
        if fr := self.exitOf(bb); fr != nil {
            self.leave(seq, fr, bb)
            return
        }
        bb = self.traverse(seq, bb)
    }
}

// leave makes jumps out of the innermost loop explicit. Jumps past it to
// an exit of an enclosing construct cannot be expressed.
func (self *_Maker) leave(seq _Seq, fr *_Frame, bb *cfg.Block) {
    lf := self.innermostLoop()
    if lf != nil && fr != lf && self.below(fr, lf) {
        utils.Raise(utils.EInvariant(bb, "jump to %s leaves the loop at %s", bb, lf.loop.Start))
    }

    /* only the innermost loop has jumps of its own */
    if fr.loop == nil || fr != lf {
        return
    }

    /* leaving the loop, or starting over from inside a nested construct */
    switch {
        case bb == fr.out                         : seq.Append(cfg.NewDetached(bb.Offset, ir.Break(bb.Offset)))
        case bb == fr.loop.Start && seq != fr.body : seq.Append(cfg.NewDetached(bb.Offset, ir.Continue(bb.Offset)))
    }
}

// below reports whether fr was pushed before lf.
func (self *_Maker) below(fr *_Frame, lf *_Frame) bool {
    for _, v := range self.stack {
        switch v {
            case fr : return true
            case lf : return false
        }
    }
    return false
}

// beyond reports whether bb comes after an exit of an enclosing construct,
// which would take it away from the code following that exit.
func (self *_Maker) beyond(bb *cfg.Block) bool {
    for _, fr := range self.stack {
        for v := range fr.exits {
            if v != bb && (fr.loop == nil || v != fr.loop.Start) && reaches(v, bb) {
                return true
            }
        }
    }
    return false
}

// reaches follows the clean successors, so loop back edges are not taken.
func reaches(from *cfg.Block, to *cfg.Block) bool {
    q := lane.NewQueue()
    vis := map[*cfg.Block]bool { from: true }
    q.Enqueue(from)

    /* breadth first */
    for !q.Empty() {
        for _, v := range q.Dequeue().(*cfg.Block).CleanSuccessors() {
            if v == to {
                return true
            }
            if !vis[v] {
                vis[v] = true
                q.Enqueue(v)
            }
        }
    }
    return false
}

func (self *_Maker) traverse(seq _Seq, bb *cfg.Block) *cfg.Block {
    if self.done[bb] {
        utils.Raise(utils.EInvariant(bb, "block is reached again after it was placed"))
    }

    /* the outermost try starting here */
    if tb := self.pendingTry(bb); tb != nil {
        return self.makeTryCatch(seq, bb, tb)
    }

    /* loops headed here */
    if lps := self.pendingLoops(bb); len(lps) != 0 {
        return self.makeLoop(seq, bb, lps)
    }

    /* branches */
    if p := bb.LastInsn(); p != nil {
        switch p.Op {
            case ir.OP_if     : return self.makeIf(seq, bb)
            case ir.OP_switch : return self.makeSwitch(seq, bb)
        }
    }
    return self.place(seq, bb)
}

func (self *_Maker) place(seq _Seq, bb *cfg.Block) *cfg.Block {
    self.done[bb] = true
    seq.Append(bb)

    /* falls through to a single block, or back to a loop header */
    succ := self.targets(bb)
    if len(succ) == 0 {
        return nil
    }

    /* duplicated edges still lead to one block */
    for _, v := range succ[1:] {
        if v != succ[0] {
            utils.Raise(utils.EMalformed(bb, "block without a branch has %d successors", len(succ)))
        }
    }
    return succ[0]
}

// targets returns the clean successors plus the headers of the loops the
// block closes, which are real branch targets even though they are not
// forward flow.
func (self *_Maker) targets(bb *cfg.Block) []*cfg.Block {
    ret := append([]*cfg.Block(nil), bb.CleanSuccessors()...)
    for _, lp := range cfg.LoopsOf(bb) {
        if lp.End == bb {
            ret = append(ret, lp.Start)
        }
    }
    return ret
}

func findOffset(bbs []*cfg.Block, offset int) *cfg.Block {
    for _, bb := range bbs {
        if bb.Offset == offset {
            return bb
        }
    }
    return nil
}

// branches returns the taken and the fall-through successor of a two-way branch.
func (self *_Maker) branches(bb *cfg.Block) (*cfg.Block, *cfg.Block) {
    p := bb.LastInsn()
    succ := self.targets(bb)

    /* must be two-way */
    if len(succ) != 2 {
        utils.Raise(utils.EMalformed(bb, "two-way branch with %d successors", len(succ)))
    }

    /* match the branch target */
    switch p.Target {
        case succ[0].Offset : return succ[0], succ[1]
        case succ[1].Offset : return succ[1], succ[0]
        default             : utils.Raise(utils.EMalformed(bb, "branch target %04x is not a successor", p.Target))
    }
    return nil, nil
}

// side returns the blocks where the code starting at x rejoins other paths:
// x itself when it is already a join point, its dominance frontier otherwise.
func (self *_Maker) side(bb *cfg.Block, x *cfg.Block) map[*cfg.Block]bool {
    if x.IDom() != bb {
        return map[*cfg.Block]bool { x: true }
    }

    /* handler entries are not joins */
    df := x.DomFrontier()
    ret := make(map[*cfg.Block]bool)
    for i, ok := df.NextSet(0); ok; i, ok = df.NextSet(i + 1) {
        if v := self.g.Blocks[i]; !isHandlerEntry(v) {
            ret[v] = true
        }
    }
    return ret
}

/** If **/

func (self *_Maker) makeIf(seq _Seq, bb *cfg.Block) *cfg.Block {
    t, e := self.branches(bb)
    if t == e {
        return self.place(seq, bb)
    }

    /* build the condition */
    r, err := NewIf(seq, bb)
    raise(err)

    /* short-circuit chains, then both branches up to the merge point */
    self.done[bb] = true
    t, e = self.chain(r, t, e)
    out := self.ifMerge(bb, t, e)
    self.push(newFrame(out))

    /* branches that are not the merge point itself */
    if t != out { r.SetThen(self.branch(r, t)) }
    if e != out { r.SetElse(self.branch(r, e)) }

    /* continue after the merge point */
    self.pop()
    seq.Append(r)
    return out
}

func (self *_Maker) branch(r Region, bb *cfg.Block) Container {
    s := NewSequence(r)
    self.fill(s, bb)
    return unwrap(s)
}

// chain folds branch blocks reached only from the headers of r into its
// condition, for as long as they share a target with it. A target shared
// with the merge point is left to nest, that is an ordinary if inside if.
// It returns the branches of the whole chain.
func (self *_Maker) chain(r *If, t *cfg.Block, e *cfg.Block) (*cfg.Block, *cfg.Block) {
    pd := r.Header.IPDom()
    for {
        if t != pd && self.chainable(r, e) {
            t2, e2 := self.branches(e)
            switch {
                case t2 == t : self.link(r, cond.Or, e, false); e = e2; continue
                case e2 == t : self.link(r, cond.Or, e, true); e = t2; continue
            }
        }
        if e != pd && self.chainable(r, t) {
            t2, e2 := self.branches(t)
            switch {
                case e2 == e : self.link(r, cond.And, t, false); t = t2; continue
                case t2 == e : self.link(r, cond.And, t, true); t = e2; continue
            }
        }
        return t, e
    }
}

func (self *_Maker) link(r *If, mode cond.Mode, bb *cfg.Block, negate bool) {
    raise(r.chain(mode, bb, negate))
    self.done[bb] = true
}

// chainable reports whether x is a bare branch that belongs to the chain of r.
func (self *_Maker) chainable(r *If, x *cfg.Block) bool {
    if self.done[x] || self.exitOf(x) != nil || len(x.Insns) != 1 || x.Insns[0].Op != ir.OP_if {
        return false
    }

    /* loop headers and try entries start constructs of their own */
    if len(self.pendingLoops(x)) != 0 || trycatch.TryOf(x.Attrs()) != trycatch.TryOf(r.Header.Attrs()) {
        return false
    }

    /* only reached from the chain */
    for _, p := range x.Predecessors() {
        if !isHeaderOf(r, p) {
            return false
        }
    }

    /* and a real two-way branch */
    t2, e2 := self.branches(x)
    return t2 != e2
}

func isHeaderOf(r *If, bb *cfg.Block) bool {
    for _, v := range r.Headers() {
        if v == bb {
            return true
        }
    }
    return false
}

func (self *_Maker) ifMerge(bb *cfg.Block, t *cfg.Block, e *cfg.Block) *cfg.Block {
    xt := self.exitOf(t) != nil
    xe := self.exitOf(e) != nil

    /* a branch to a loop exit or header becomes a jump, any other exit of
     * the enclosing construct is where this if ends too */
    switch {
        case xt && xe            : return nil
        case xt && self.jump(t)  : return e
        case xt                  : return t
        case xe && self.jump(e)  : return t
        case xe                  : return e
    }

    /* the immediate post-dominator, unless it belongs after an enclosing construct */
    if p := bb.IPDom(); p != nil && !self.done[p] && !self.beyond(p) {
        return p
    }

    /* one branch runs into the other */
    st, se := self.side(bb, t), self.side(bb, e)
    switch {
        case st[e]        : return e
        case se[t]        : return t
        case len(st) == 0 : return e
        case len(se) == 0 : return t
    }

    /* the first common join point */
    var out *cfg.Block
    for v := range st {
        if se[v] && v != bb && (out == nil || v.Offset < out.Offset) {
            out = v
        }
    }
    return out
}

/** Loop **/

func (self *_Maker) pendingLoops(bb *cfg.Block) []*cfg.LoopInfo {
    var ret []*cfg.LoopInfo
    for _, lp := range cfg.LoopsOf(bb) {
        if lp.Start == bb && !self.loops[lp] {
            ret = append(ret, lp)
        }
    }
    return ret
}

// makeLoop structures the loops headed by bb as one region. Several back
// edges to one header are a single loop with continues.
func (self *_Maker) makeLoop(seq _Seq, bb *cfg.Block, lps []*cfg.LoopInfo) *cfg.Block {
    body := make(map[*cfg.Block]bool)
    for _, lp := range lps {
        self.loops[lp] = true
        for _, v := range lp.Blocks() {
            body[v] = true
        }
    }

    /* shape of the loop */
    out, first, c := self.loopShape(bb, body)
    lr := NewLoop(seq, lps[0])
    blk := NewSequence(lr)

    /* the body ends at the header, or where the loop leaves to */
    fr := newFrame(bb, out)
    fr.loop, fr.out, fr.body = lps[0], out, blk
    self.push(fr)

    /* a pre-condition loop tests in its header, an endless one starts there */
    if c != nil {
        self.done[bb] = true
        lr.Header, lr.Cond = bb, c
        self.fill(blk, first)
    } else {
        self.fill(blk, self.traverse(blk, bb))
    }

    /* continue after the loop */
    self.pop()
    lr.SetBody(unwrap(blk))
    seq.Append(lr)
    return out
}

// loopShape decides between a pre-condition loop, for a header branching once
// into the body and once out of it, and an endless loop. It returns the block
// after the loop and, for pre-condition loops, the first body block and the
// condition to stay in the loop.
func (self *_Maker) loopShape(bb *cfg.Block, body map[*cfg.Block]bool) (*cfg.Block, *cfg.Block, *cond.Condition) {
    if p := bb.LastInsn(); p != nil && p.Op == ir.OP_if && len(bb.Insns) == 1 {
        t, e := self.branches(bb)
        c, err := cond.FromBranch(bb)
        raise(err)

        /* exactly one edge leaves */
        switch {
            case body[t] && !body[e] : return e, t, c
            case body[e] && !body[t] : return t, e, cond.Invert(c)
        }
    }

    /* an endless loop leaves to its best exit */
    var out *cfg.Block
    for v := range body {
        for _, s := range v.CleanSuccessors() {
            if !body[s] && s != out && better(s, out) {
                out = s
            }
        }
    }
    return out, nil, nil
}

/** Switch **/

func (self *_Maker) makeSwitch(seq _Seq, bb *cfg.Block) *cfg.Block {
    p := bb.LastInsn()
    self.done[bb] = true

    /* keys and targets go in pairs */
    if len(p.Keys) != len(p.Targets) {
        utils.Raise(utils.EMalformed(bb, "switch with %d keys and %d targets", len(p.Keys), len(p.Targets)))
    }

    /* group the keys by target block */
    var cases []*cfg.Block
    succ := self.targets(bb)
    keys := make(map[*cfg.Block][]int64)

    /* resolve every target */
    for i, off := range p.Targets {
        v := findOffset(succ, off)
        if v == nil {
            utils.Raise(utils.EMalformed(bb, "switch target %04x is not a successor", off))
        }
        if _, ok := keys[v]; !ok {
            cases = append(cases, v)
        }
        keys[v] = append(keys[v], p.Keys[i])
    }

    /* the successor no key leads to is the default */
    var def *cfg.Block
    for _, v := range succ {
        if _, ok := keys[v]; !ok {
            def = v
            break
        }
    }

    /* every case starts a body that ends at the merge point */
    all := append(append([]*cfg.Block(nil), cases...), def)
    out := self.switchMerge(bb, all)
    sw := NewSwitch(seq, bb)

    /* case bodies */
    for _, v := range cases {
        if v == out {
            sw.AddCase(keys[v], nil)
        } else {
            sw.AddCase(keys[v], self.caseBody(sw, v, all, out))
        }
    }

    /* default body */
    if def != nil && def != out {
        sw.SetDefault(self.caseBody(sw, def, all, out))
    }

    /* continue after the switch */
    seq.Append(sw)
    return out
}

// caseBody structures one case. The other case entries are exits too, so a
// fall-through stops there instead of duplicating the next case.
func (self *_Maker) caseBody(sw *Switch, bb *cfg.Block, all []*cfg.Block, out *cfg.Block) Container {
    fr := newFrame(out)
    for _, v := range all {
        if v != nil && v != bb {
            fr.exits[v] = true
        }
    }

    /* structure the body */
    s := NewSequence(sw)
    self.push(fr)
    self.fill(s, bb)
    self.pop()
    return unwrap(s)
}

// switchMerge picks the immediate post-dominator, or else the join point
// shared by most of the case bodies.
func (self *_Maker) switchMerge(bb *cfg.Block, all []*cfg.Block) *cfg.Block {
    var out *cfg.Block
    cnt := make(map[*cfg.Block]int)

    /* every case ends up there */
    if p := bb.IPDom(); p != nil && !self.done[p] && !self.beyond(p) {
        return p
    }

    /* count the join points of every body */
    for _, v := range all {
        if v != nil && self.exitOf(v) == nil {
            for x := range self.side(bb, v) {
                if x != bb {
                    cnt[x]++
                }
            }
        }
    }

    /* most shared, then lowest offset */
    for x, n := range cnt {
        if out == nil || n > cnt[out] || (n == cnt[out] && x.Offset < out.Offset) {
            out = x
        }
    }
    return out
}

/** TryCatch **/

// pendingTry returns the outermost try-block guarding bb that has no region yet.
func (self *_Maker) pendingTry(bb *cfg.Block) *trycatch.TryBlock {
    var ret *trycatch.TryBlock
    vis := make(map[*trycatch.TryBlock]bool)

    /* walk outwards */
    for tb := trycatch.TryOf(bb.Attrs()); tb != nil && !vis[tb]; tb = tb.Outer() {
        vis[tb] = true
        if !self.tries[tb] {
            ret = tb
        }
    }
    return ret
}

// guarded reports whether tb or a try nested in it guards bb.
func guarded(bb *cfg.Block, tb *trycatch.TryBlock) bool {
    vis := make(map[*trycatch.TryBlock]bool)
    for p := trycatch.TryOf(bb.Attrs()); p != nil && !vis[p]; p = p.Outer() {
        if p == tb {
            return true
        }
        vis[p] = true
    }
    return false
}

// tryExit returns the block the guarded code leaves to most often.
func (self *_Maker) tryExit(tb *trycatch.TryBlock) *cfg.Block {
    var out *cfg.Block
    cnt := make(map[*cfg.Block]int)

    /* count the edges leaving the guarded blocks */
    for _, bb := range self.g.Blocks {
        if guarded(bb, tb) {
            for _, s := range bb.CleanSuccessors() {
                if !guarded(s, tb) {
                    cnt[s]++
                }
            }
        }
    }

    /* continuing blocks first, then the most used, then the lowest offset */
    for x, n := range cnt {
        if out == nil || exitBefore(x, n, out, cnt[out]) {
            out = x
        }
    }
    return out
}

func exitBefore(a *cfg.Block, na int, b *cfg.Block, nb int) bool {
    ea := len(a.Successors()) == 0
    eb := len(b.Successors()) == 0

    /* compare by rank */
    switch {
        case ea != eb : return !ea
        case na != nb : return na > nb
        default       : return a.Offset < b.Offset
    }
}

func (self *_Maker) makeTryCatch(seq _Seq, bb *cfg.Block, tb *trycatch.TryBlock) *cfg.Block {
    self.tries[tb] = true
    tc := NewTryCatch(seq, tb)
    out := self.tryExit(tb)

    /* guarded code */
    body := NewSequence(tc)
    self.push(newFrame(out))
    self.fill(body, bb)
    self.pop()
    tc.SetTry(unwrap(body))

    /* handler bodies, shared ones are built once */
    for _, h := range tb.Handlers() {
        hr := self.t.handlers[h]
        if hr == nil && h.Block != nil {
            hr = self.handlerBody(tc, h, out)
        }
        if hr != nil && h.Finally {
            self.t.SetFinallyRegion(tb, hr)
        }
    }

    /* continue after the try */
    seq.Append(tc)
    return out
}

// handlerBody returns the region of the handler entry, building it for the
// first handler there. Handlers of different types may share one entry.
func (self *_Maker) handlerBody(parent Region, h *trycatch.Handler, out *cfg.Block) Region {
    if hr := self.hbody[h.Block]; hr != nil {
        self.t.SetHandlerRegion(h, hr)
        return hr
    } else {
        return self.makeHandler(parent, h, out)
    }
}

func (self *_Maker) makeHandler(parent Region, h *trycatch.Handler, out *cfg.Block) Region {
    hr := NewSynthetic(parent)
    self.hbody[h.Block] = hr
    self.t.SetHandlerRegion(h, hr)

    /* synthetic hops into the handler belong to it */
    for _, p := range h.Block.Predecessors() {
        if !self.done[p] && p.IsSynthetic() && len(p.Successors()) == 1 {
            self.done[p] = true
            hr.Append(p)
        }
    }

    /* the handler body */
    self.push(newFrame(out))
    self.fill(hr, h.Block)
    self.pop()
    return hr
}
