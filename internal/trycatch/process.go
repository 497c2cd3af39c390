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

package trycatch

import (
    `github.com/cloudwego/regions/internal/attr`
    `github.com/cloudwego/regions/internal/cfg`
    `github.com/cloudwego/regions/internal/ir`
    `github.com/cloudwego/regions/internal/utils`
)

type Phase uint8

const (
    PhaseMarkHandlers Phase = iota + 1
    PhaseHandlerScope
    PhaseTagTryScope
    PhaseConnect
)

func (self Phase) String() string {
    switch self {
        case PhaseMarkHandlers : return "mark-handlers"
        case PhaseHandlerScope : return "handler-scope"
        case PhaseTagTryScope  : return "tag-try-scope"
        case PhaseConnect      : return "connect-handlers"
        default                : return "unknown"
    }
}

type _Processor struct {
    g *cfg.Graph
    m *Model
}

// Process runs the exception pipeline over the block graph, each phase over
// every block before the next one starts. Dominators are computed first if
// they are not up to date.
func Process(g *cfg.Graph, m *Model) (err error) {
    var ph Phase
    var pp = _Processor { g, m }

    /* stamp the failing phase */
    defer func() {
        if e, ok := err.(*utils.AnalysisError); ok && e.Phase == "" {
            e.Phase = ph.String()
        }
    }()

    /* convert raised errors */
    defer utils.Recover(&err)

    /* handler scopes depend on the dominator tree */
    if !g.DomOK() {
        g.ComputeDominators()
    }

    /* Phase 1: mark the handler entries, then refresh the clean successors */
    ph = PhaseMarkHandlers
    for _, bb := range g.Blocks { pp.markHandler(bb) }
    g.UpdateCleanSuccessors()

    /* Phase 2: collect the handler scopes */
    ph = PhaseHandlerScope
    for _, bb := range g.Blocks { pp.handlerScope(bb) }

    /* Phase 3: tag the blocks fully inside one try-scope */
    ph = PhaseTagTryScope
    for _, bb := range g.Blocks { pp.tagTryScope(bb) }

    /* Phase 4: resolve every handler to its entry block */
    ph = PhaseConnect
    pp.connectHandlers()
    pp.detectFinally()
    return
}

func (self _Processor) markHandler(bb *cfg.Block) {
    if len(bb.Insns) == 0 {
        return
    }

    /* move-exception can only start a block */
    for _, p := range bb.Insns[1:] {
        if p.Op == ir.OP_move_exception {
            utils.Raise(utils.EInvariant(bb, "move-exception at %04x is not the first instruction", p.Offset))
        }
    }

    /* check for handler entry */
    me := bb.Insns[0]
    hd := HandlerOf(&me.Node)

    /* not a handler entry */
    if hd == nil || me.Op != ir.OP_move_exception {
        return
    }

    /* the exception must be stored somewhere */
    if me.Result == nil {
        utils.Raise(utils.EMalformed(bb, "move-exception at %04x has no result", me.Offset))
    }

    /* every handler declared here shares the caught value */
    hs := self.m.HandlersAt(hd.Offset)
    et := hd.ExceptionType()

    /* handlers disagreeing on the type catch a Throwable */
    for _, h := range hs {
        if h.ExceptionType() != et {
            et = ir.Throwable
        }
    }

    /* correct the result type */
    me.Result = ir.Named(me.Result.N, me.Result.Name, et)
    me.Add(attr.DontInline)
    bb.AddAttr(me.Get(attr.ExcHandler))

    /* update the handlers */
    for _, h := range hs {
        h.Arg = me.Result
    }
}

func (self _Processor) handlerScope(bb *cfg.Block) {
    hd := HandlerOf(bb.Attrs())
    if hd == nil {
        return
    }

    /* the entry and everything it dominates */
    hd.Blocks = append([]*cfg.Block { bb }, self.g.CollectDominatedBy(bb)...)

    /* clean up every block in the scope */
    for _, p := range hd.Blocks {
        removeMonitorExits(p)
        mergeThrowScopes(hd, p)
    }
}

// removeMonitorExits drops the unlocks seen before the first lock, which are
// left over from the unwind path of a synchronized block.
func removeMonitorExits(bb *cfg.Block) {
    var rem []*ir.Insn
    for _, p := range bb.Insns {
        if p.Op == ir.OP_monitor_enter {
            break
        } else if p.Op == ir.OP_monitor_exit {
            rem = append(rem, p)
        }
    }

    /* remove from the block and from the try-scope */
    for _, p := range rem {
        if tb := TryOf(&p.Node); tb != nil {
            tb.RemoveInsn(p)
        }
        bb.RemoveInsn(p)
    }
}

// mergeThrowScopes merges the try-block of the handler with the one guarding
// a throw in the handler body, and takes the throw out of the latter.
func mergeThrowScopes(hd *Handler, bb *cfg.Block) {
    for _, p := range bb.Insns {
        if p.Op == ir.OP_throw {
            if tb := TryOf(&p.Node); tb != nil {
                if own := hd.TryBlock.Canonical(); own != tb {
                    own.Merge(tb)
                    own.RemoveInsn(p)
                }
            }
        }
    }
}

func (self _Processor) tagTryScope(bb *cfg.Block) {
    var tag attr.Attr
    for _, p := range bb.Insns {
        v := p.Get(attr.CatchBlock)

        /* partial coverage leaves the block untagged */
        if v == nil || (tag != nil && v != tag) {
            return
        }

        /* first instruction */
        tag = v
    }

    /* empty blocks are not tagged */
    if tag != nil {
        bb.AddAttr(tag)
    }
}

func (self _Processor) connectHandlers() {
    entries := make(map[int]*cfg.Block)
    for _, bb := range self.g.Blocks {
        if hd := HandlerOf(bb.Attrs()); hd != nil {
            entries[hd.Offset] = bb
        }
    }

    /* every handler of a try-block still guarding code must resolve */
    guarded := self.guardedTries()
    for _, tb := range self.m.Live() {
        if !guarded[tb] {
            continue
        }
        for _, h := range tb.handlers {
            if bb := entries[h.Offset]; bb != nil {
                h.Block = bb
            } else {
                utils.Raise(utils.EMalformed(tb, "unresolved %s", h))
            }
        }
    }

    /* handlers sharing an entry share its scope */
    for _, h := range self.m.Handlers {
        if h.Block != nil && h.Blocks == nil {
            h.Blocks = HandlerOf(h.Block.Attrs()).Blocks
        }
    }
}

// guardedTries returns the try-blocks, enclosing ranges included, that guard
// at least one instruction left in the graph. Ranges over dropped dead code
// have handlers that may have been dropped too.
func (self _Processor) guardedTries() map[*TryBlock]bool {
    ret := make(map[*TryBlock]bool)
    for _, bb := range self.g.Blocks {
        for _, p := range bb.Insns {
            if v := p.Get(attr.CatchBlock); v != nil {
                for tb := v.(*CatchAttr).TryBlock; tb != nil; tb = tb.outer {
                    ret[tb.Canonical()] = true
                }
            }
        }
    }
    return ret
}

// detectFinally flags the catch-all handlers that rethrow the caught value.
func (self _Processor) detectFinally() {
    for _, h := range self.m.Handlers {
        if !h.IsCatchAll() || h.Block == nil || h.Arg == nil {
            continue
        }

        /* look for a rethrow of the caught register */
        for _, bb := range h.Blocks {
            if p := bb.LastInsn(); p != nil && p.Op == ir.OP_throw && len(p.Args) == 1 {
                if h.Arg.SameReg(p.Args[0]) {
                    h.Finally = true
                    h.Block.Add(attr.FinallyHandler)
                    break
                }
            }
        }
    }
}
