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
    `github.com/cloudwego/regions/internal/attr`
    `github.com/cloudwego/regions/internal/cfg`
    `github.com/cloudwego/regions/internal/trycatch`
    `github.com/oleiade/lane`
)

// Tree is the structured form of one method. Regions reach their parents
// through the primary tree; handler and finally bodies are looked up in the
// side tables, keyed by the handler and by the canonical try-block.
type Tree struct {
    Root     Region
    Graph    *cfg.Graph
    handlers map[*trycatch.Handler]Region
    finals   map[*trycatch.TryBlock]Region
}

func NewTree(g *cfg.Graph) *Tree {
    return &Tree {
        Graph    : g,
        handlers : make(map[*trycatch.Handler]Region),
        finals   : make(map[*trycatch.TryBlock]Region),
    }
}

func (self *Tree) HandlerRegion(h *trycatch.Handler) Region {
    return self.handlers[h]
}

// SetHandlerRegion registers the body of a handler and tags it as such. A
// body shared by handlers at one entry keeps the tag of the first one.
func (self *Tree) SetHandlerRegion(h *trycatch.Handler, r Region) {
    if trycatch.HandlerOf(r.Attrs()) == nil {
        r.Attrs().Add(attr.ExcHandlerRegion)
        r.Attrs().AddAttr(&trycatch.HandlerAttr { Handler: h })
    }
    self.handlers[h] = r
}

func (self *Tree) FinallyRegion(tb *trycatch.TryBlock) Region {
    return self.finals[tb.Canonical()]
}

func (self *Tree) SetFinallyRegion(tb *trycatch.TryBlock, r Region) {
    r.Attrs().Add(attr.FinallyHandler)
    self.finals[tb.Canonical()] = r
}

// HandlerRegions returns the handler regions of the try-block whose scope tag
// the container carries, followed by its finally region when that is not
// one of the handlers already.
func (self *Tree) HandlerRegions(c Container) []Region {
    var ret []Region
    var tb  *trycatch.TryBlock

    /* must be tagged */
    if tb = trycatch.TryOf(c.Attrs()); tb == nil {
        return nil
    }

    /* handler bodies, in declaration order */
    for _, h := range tb.Handlers() {
        if r := self.handlers[h]; r != nil {
            ret = append(ret, r)
        }
    }

    /* finally body */
    if r := self.FinallyRegion(tb); r != nil {
        for _, v := range ret {
            if v == r {
                return ret
            }
        }
        ret = append(ret, r)
    }
    return ret
}

// Regions walks every region reachable from the root, including handler
// bodies, visiting each once.
func (self *Tree) Regions(action func(r Region)) {
    st := lane.NewStack()
    vis := make(map[Region]bool)

    /* the primary tree and every registered body */
    push := func(r Region) {
        if r != nil && !vis[r] {
            vis[r] = true
            st.Push(r)
        }
    }

    /* start from the root */
    push(self.Root)
    for _, r := range self.handlers { push(r) }
    for _, r := range self.finals   { push(r) }

    /* depth first */
    for !st.Empty() {
        r := st.Pop().(Region)
        action(r)

        /* sub-regions */
        for _, c := range r.SubBlocks() {
            if _, v := dispatch(c); v != nil {
                push(v)
            }
        }
    }
}

// Blocks collects every block of the tree, including handler bodies.
func (self *Tree) Blocks() map[*cfg.Block]bool {
    ret := make(map[*cfg.Block]bool)
    self.Regions(func(r Region) {
        for _, c := range r.SubBlocks() {
            if bb, _ := dispatch(c); bb != nil {
                ret[bb] = true
            }
        }
    })
    return ret
}
