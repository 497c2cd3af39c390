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
    `github.com/cloudwego/regions/internal/cfg`
    `github.com/cloudwego/regions/internal/ir`
    `github.com/cloudwego/regions/internal/utils`
)

// Validate checks a finished tree: every block of the graph is placed, every
// sub-region points back to its parent, every if header holds nothing but
// its branch, and every edge of the graph is expressed by the tree.
func Validate(t *Tree) (err error) {
    defer utils.Recover(&err)
    blocks := t.Blocks()

    /* every block must be placed */
    for _, bb := range t.Graph.Blocks {
        if !blocks[bb] {
            utils.Raise(utils.EInvariant(bb, "block is not part of the region tree"))
        }
    }

    /* check every region */
    t.Regions(func(r Region) {
        for _, c := range r.SubBlocks() {
            if _, v := dispatch(c); v != nil && v.Parent() != r {
                utils.Raise(utils.EInvariant(v, "region is not linked to its parent %s", r))
            }
        }

        /* if headers hold the branch only */
        if v, ok := r.(*If); ok {
            for _, bb := range v.Headers() {
                if len(bb.Insns) != 1 {
                    utils.Raise(utils.EInvariant(bb, "if header has %d instructions", len(bb.Insns)))
                }
            }
        }
    })

    /* no edge was lost */
    checkEdges(t)
    return
}

/** Edge Preservation **/

type _BlockSet map[*cfg.Block]bool

func setOf(bbs ...*cfg.Block) _BlockSet {
    ret := make(_BlockSet, len(bbs))
    for _, bb := range bbs {
        ret[bb] = true
    }
    return ret
}

func union(sets ..._BlockSet) _BlockSet {
    ret := make(_BlockSet)
    for _, s := range sets {
        for bb := range s {
            ret[bb] = true
        }
    }
    return ret
}

// _Scope is the loop break and continue refer to.
type _Scope struct {
    start _BlockSet
    exit  _BlockSet
}

// _EdgeCheck walks the tree knowing where control goes after every
// container, and requires each edge to lead to one of those places.
type _EdgeCheck struct {
    t     *Tree
    seen  map[Region]bool
    loops []_Scope
}

func checkEdges(t *Tree) {
    ec := &_EdgeCheck { t: t, seen: make(map[Region]bool) }
    ec.walk(t.Root, nil)

    /* bodies that hang off no try region have nowhere to go */
    for _, r := range t.handlers {
        if _, ok := r.Parent().(*TryCatch); !ok {
            ec.body(r, nil)
        }
    }
    for _, r := range t.finals {
        if _, ok := r.Parent().(*TryCatch); !ok {
            ec.body(r, nil)
        }
    }
}

// expect raises for a flow edge of bb that leads nowhere in ok.
func expect(bb *cfg.Block, ok _BlockSet) {
    for _, v := range bb.Successors() {
        if !isHandlerEntry(v) && !ok[v] {
            utils.Raise(utils.EInvariant(bb, "edge to %s is not expressed by the region tree", v))
        }
    }
}

func (self *_EdgeCheck) scope(bb *cfg.Block) _Scope {
    if len(self.loops) == 0 {
        utils.Raise(utils.EInvariant(bb, "jump outside of a loop"))
    }
    return self.loops[len(self.loops) - 1]
}

// first returns where control enters the container, or false when the
// container holds no block at all.
func (self *_EdgeCheck) first(c Container) (_BlockSet, bool) {
    if c == nil {
        return nil, false
    }

    /* jumps enter wherever they lead */
    bb, r := dispatch(c)
    if bb != nil {
        if p := bb.LastInsn(); bb.Detached() && p != nil {
            switch p.Op {
                case ir.OP_break    : return self.scope(bb).exit, true
                case ir.OP_continue : return self.scope(bb).start, true
            }
        }
        return setOf(bb), true
    }

    /* composite regions */
    switch v := r.(type) {
        case *If       : return setOf(v.Header), true
        case *Switch   : return setOf(v.Header), true
        case *Loop     : return setOf(v.Info.Start), true
        case *TryCatch : return self.first(v.Try)
    }

    /* sequences enter at their first non-empty sub-container */
    return self.firstOf(r.SubBlocks())
}

func (self *_EdgeCheck) firstOf(list []Container) (_BlockSet, bool) {
    for _, c := range list {
        if ret, ok := self.first(c); ok {
            return ret, true
        }
    }
    return nil, false
}

// entries is where control goes when it reaches c, which is follow when c
// is empty.
func (self *_EdgeCheck) entries(c Container, follow _BlockSet) _BlockSet {
    if ret, ok := self.first(c); ok {
        return ret
    } else {
        return follow
    }
}

func (self *_EdgeCheck) walk(c Container, follow _BlockSet) {
    if c == nil {
        return
    }

    /* leaves */
    bb, r := dispatch(c)
    if bb != nil {
        expect(bb, follow)
        return
    }

    /* composite regions */
    switch v := r.(type) {
        case *If       : self.walkIf(v, follow)
        case *Switch   : self.walkSwitch(v, follow)
        case *Loop     : self.walkLoop(v, follow)
        case *TryCatch : self.walkTry(v, follow)
        default        : self.walkSeq(r.SubBlocks(), follow)
    }
}

func (self *_EdgeCheck) walkSeq(subs []Container, follow _BlockSet) {
    for i, c := range subs {
        if next, ok := self.firstOf(subs[i + 1:]); ok {
            self.walk(c, next)
        } else {
            self.walk(c, follow)
        }
    }
}

func (self *_EdgeCheck) walkIf(r *If, follow _BlockSet) {
    ok := union(setOf(r.Headers()...), self.entries(r.Then, follow), self.entries(r.Else, follow))
    for _, bb := range r.Headers() {
        expect(bb, ok)
    }

    /* both branches end where the if does */
    self.walk(r.Then, follow)
    self.walk(r.Else, follow)
}

// walkSwitch lets every case fall into any other one, as structuring stops
// a case body at the entries of the others.
func (self *_EdgeCheck) walkSwitch(r *Switch, follow _BlockSet) {
    ok := union(follow, self.entries(r.Default, follow))
    for _, v := range r.Cases {
        ok = union(ok, self.entries(v.Body, follow))
    }

    /* the header and the bodies */
    expect(r.Header, ok)
    for _, v := range r.Cases {
        self.walk(v.Body, ok)
    }
    self.walk(r.Default, ok)
}

func (self *_EdgeCheck) walkLoop(r *Loop, follow _BlockSet) {
    sc := _Scope { start: setOf(r.Info.Start), exit: follow }
    self.loops = append(self.loops, sc)

    /* a pre-condition header enters the body or leaves */
    if r.Header != nil {
        expect(r.Header, union(self.entries(r.Body, sc.start), follow))
    }

    /* the body starts over at the end */
    self.walk(r.Body, sc.start)
    self.loops = self.loops[:len(self.loops) - 1]
}

// walkTry checks the handler bodies built for this region along with the
// guarded code. They all continue after the try.
func (self *_EdgeCheck) walkTry(r *TryCatch, follow _BlockSet) {
    self.walk(r.Try, follow)
    for _, v := range self.t.HandlerRegions(r) {
        if v.Parent() == Region(r) {
            self.body(v, follow)
        }
    }
}

func (self *_EdgeCheck) body(r Region, follow _BlockSet) {
    if !self.seen[r] {
        self.seen[r] = true
        self.walk(r, follow)
    }
}
