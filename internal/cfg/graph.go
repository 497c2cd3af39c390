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

package cfg

import (
    `github.com/oleiade/lane`
    `gonum.org/v1/gonum/graph/simple`
)

// Graph is the basic block graph of one method. Blocks are indexed by id.
type Graph struct {
    Entry  *Block
    Blocks []*Block
    locked bool
    domok  bool
    view   *simple.DirectedGraph
}

func (self *Graph) Block(id int) *Block {
    return self.Blocks[id]
}

// BlockAt returns the block starting at the given offset, or nil.
func (self *Graph) BlockAt(offset int) *Block {
    for _, bb := range self.Blocks {
        if bb.Offset == offset {
            return bb
        }
    }
    return nil
}

func (self *Graph) Locked() bool {
    return self.locked
}

// Connect adds the edge from -> to. Repeated edges are kept.
func (self *Graph) Connect(from *Block, to *Block) {
    self.checkMutable()
    from.checkMutable()
    to.checkMutable()
    from.succ = append(from.succ, to)
    to.pred = append(to.pred, from)
    self.edgesChanged(from)
}

// Disconnect removes every edge from -> to, reporting whether any existed.
func (self *Graph) Disconnect(from *Block, to *Block) bool {
    self.checkMutable()
    from.checkMutable()
    to.checkMutable()

    /* nothing to remove */
    if !removeBlock(&from.succ, to) {
        return false
    }

    /* drop the reverse edges as well */
    removeBlock(&to.pred, from)
    self.edgesChanged(from)
    return true
}

func removeBlock(list *[]*Block, bb *Block) bool {
    ok := false
    buf := (*list)[:0]

    /* keep everything except bb */
    for _, p := range *list {
        if p != bb {
            buf = append(buf, p)
        } else {
            ok = true
        }
    }

    /* update the list */
    *list = buf
    return ok
}

func (self *Graph) edgesChanged(bb *Block) {
    bb.invalidate()
    self.view = nil
    self.invalidateDominance()
}

func (self *Graph) invalidateDominance() {
    if self.domok {
        self.domok = false
        for _, bb := range self.Blocks {
            bb.doms = nil
            bb.df = nil
            bb.idom = nil
            bb.domOn = nil
        }
    }
}

func (self *Graph) checkMutable() {
    if self.locked {
        panic("cfg: block graph is locked")
    }
}

// Lock freezes the edge and dominator tree lists. Any further edge mutation panics.
func (self *Graph) Lock() {
    self.locked = true
    for _, bb := range self.Blocks {
        bb.pred = bb.pred[:len(bb.pred):len(bb.pred)]
        bb.succ = bb.succ[:len(bb.succ):len(bb.succ)]
        bb.domOn = bb.domOn[:len(bb.domOn):len(bb.domOn)]
        bb.locked = true
    }
}

// UpdateCleanSuccessors refreshes the clean successor view of every block.
func (self *Graph) UpdateCleanSuccessors() {
    for _, bb := range self.Blocks {
        bb.UpdateCleanSuccessors()
    }
}

// IsDominatedBy reports whether dom strictly dominates bb.
func (self *Graph) IsDominatedBy(dom *Block, bb *Block) bool {
    if !self.domok {
        panic("cfg: dominators are not computed")
    } else {
        return bb.doms.Test(uint(dom.Id))
    }
}

// PostOrder visits every block reachable from the entry in DFS post-order.
func (self *Graph) PostOrder(action func(bb *Block)) {
    type _Frame struct {
        bb *Block
        ip int
    }

    /* explicit DFS stack */
    st := lane.NewStack()
    vis := make([]bool, len(self.Blocks))
    st.Push(&_Frame { bb: self.Entry })
    vis[self.Entry.Id] = true

    /* visit successors before the block itself */
    for !st.Empty() {
        fp := st.Head().(*_Frame)
        if fp.ip == len(fp.bb.succ) {
            st.Pop()
            action(fp.bb)
            continue
        }

        /* push the next unvisited successor */
        p := fp.bb.succ[fp.ip]
        fp.ip++
        if !vis[p.Id] {
            vis[p.Id] = true
            st.Push(&_Frame { bb: p })
        }
    }
}

// ReversePostOrder returns the reachable blocks in reverse post-order.
func (self *Graph) ReversePostOrder() []*Block {
    var ret []*Block
    self.PostOrder(func(bb *Block) { ret = append(ret, bb) })

    /* reverse the order */
    for i, j := 0, len(ret) - 1; i < j; i, j = i + 1, j - 1 {
        ret[i], ret[j] = ret[j], ret[i]
    }
    return ret
}
