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
    `github.com/cloudwego/regions/internal/ir`
    `github.com/cloudwego/regions/internal/utils`
)

// Entry is one row of the exception table. The guarded range is [Start, End)
// and a nil Type catches everything.
type Entry struct {
    Start   int
    End     int
    Handler int
    Type    *ir.Type
}

// Model is the exception model of one method.
type Model struct {
    Tries    []*TryBlock
    Handlers []*Handler
}

// Live returns the try-blocks that have not been merged into another one.
func (self *Model) Live() []*TryBlock {
    var ret []*TryBlock
    for _, tb := range self.Tries {
        if tb.MergedInto == nil {
            ret = append(ret, tb)
        }
    }
    return ret
}

// HandlersAt returns every handler declared at the given offset.
func (self *Model) HandlersAt(offset int) []*Handler {
    var ret []*Handler
    for _, h := range self.Handlers {
        if h.Offset == offset {
            ret = append(ret, h)
        }
    }
    return ret
}

type _Range struct {
    start int
    end   int
}

type _HandlerKey struct {
    offset int
    name   string
    all    bool
}

func keyOf(e Entry) _HandlerKey {
    if e.Type == nil {
        return _HandlerKey { offset: e.Handler, all: true }
    } else {
        return _HandlerKey { offset: e.Handler, name: e.Type.String() }
    }
}

// Attach builds the try-blocks of a method from its exception table and tags
// the instructions. Entries sharing a guarded range share a try-block, and an
// instruction covered by several ranges belongs to the innermost one. The
// move-exception instruction at each handler offset gets the handler tag.
func Attach(insns []*ir.Insn, table []Entry) (*Model, error) {
    ret := new(Model)
    tbs := make(map[_Range]*TryBlock)
    hds := make(map[_HandlerKey]*Handler)

    /* group the entries */
    for _, e := range table {
        if e.Start >= e.End {
            return nil, utils.EMalformed(e.Handler, "empty guarded range [%04x, %04x)", e.Start, e.End)
        }

        /* one try-block per guarded range */
        rk := _Range { e.Start, e.End }
        tb := tbs[rk]

        /* create a new try-block if needed */
        if tb == nil {
            tb = newTryBlock(len(ret.Tries), e.Start, e.End)
            tbs[rk] = tb
            ret.Tries = append(ret.Tries, tb)
        }

        /* handlers are shared by (offset, type) */
        hk := keyOf(e)
        hd := hds[hk]

        /* create a new handler if needed */
        if hd == nil {
            hd = &Handler { CatchType: e.Type, Offset: e.Handler, TryBlock: tb }
            hds[hk] = hd
            ret.Handlers = append(ret.Handlers, hd)
        }

        /* add to the try-block */
        tb.addHandler(hd)
    }

    /* link every range to the smallest one enclosing it */
    for _, tb := range ret.Tries {
        for _, v := range ret.Tries {
            if v != tb && v.Start <= tb.Start && v.End >= tb.End {
                if tb.outer == nil || v.End - v.Start < tb.outer.End - tb.outer.Start {
                    tb.outer = v
                }
            }
        }
    }

    /* tag every guarded instruction with the innermost range */
    for _, p := range insns {
        var tb *TryBlock
        for _, v := range ret.Tries {
            if p.Offset >= v.Start && p.Offset < v.End {
                if tb == nil || v.End - v.Start < tb.End - tb.Start {
                    tb = v
                }
            }
        }

        /* not guarded */
        if tb != nil {
            tb.addInsn(p)
        }
    }

    /* tag the handler entries */
    for _, p := range insns {
        if p.Op == ir.OP_move_exception {
            if hs := ret.HandlersAt(p.Offset); len(hs) != 0 {
                p.AddAttr(&HandlerAttr { Handler: hs[0] })
            }
        }
    }
    return ret, nil
}

// ExceptionSuccessors returns the handler offsets reachable by throwing from
// any of the instructions, innermost first without duplicates.
func ExceptionSuccessors(insns []*ir.Insn) []int {
    var ret []int
    vis := make(map[int]bool)

    /* union over all the try-scopes */
    for _, p := range insns {
        if v := p.Get(attr.CatchBlock); v != nil {
            for tb := v.(*CatchAttr).TryBlock; tb != nil; tb = tb.outer {
                for _, h := range tb.Canonical().handlers {
                    if !vis[h.Offset] {
                        vis[h.Offset] = true
                        ret = append(ret, h.Offset)
                    }
                }
            }
        }
    }
    return ret
}
