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

/** Dominator sets are computed with the iterative data-flow formulation
 *
 *      Dom(entry) = {entry}
 *      Dom(b)     = {b} ∪ ⋂ Dom(p) for every predecessor p of b
 *
 *  visited in reverse post-order until nothing changes. The sets only ever
 *  shrink, so the iteration terminates on irreducible graphs as well. The
 *  dominance frontier follows Cooper, Harvey & Kennedy, "A Simple, Fast
 *  Dominance Algorithm".
 */

package cfg

import (
    `github.com/bits-and-blooms/bitset`
)

// ComputeDominators fills the dominator set, immediate dominator, dominance
// frontier and dominator tree children of every block reachable from the
// entry. Unreachable blocks get empty sets and no immediate dominator.
func (self *Graph) ComputeDominators() {
    nb := uint(len(self.Blocks))
    rpo := self.ReversePostOrder()
    dom := make([]*bitset.BitSet, nb)

    /* Step 1: everything dominates everything, except for the entry */
    for _, bb := range rpo[1:] {
        dom[bb.Id] = bitset.New(nb).FlipRange(0, nb)
    }

    /* the entry only dominates itself */
    dom[self.Entry.Id] = bitset.New(nb)
    dom[self.Entry.Id].Set(uint(self.Entry.Id))

    /* Step 2: intersect over predecessors until the fixpoint */
    for changed := true; changed; {
        changed = false
        for _, bb := range rpo[1:] {
            var ds *bitset.BitSet
            for _, p := range bb.pred {
                if dom[p.Id] == nil {
                    continue
                } else if ds == nil {
                    ds = dom[p.Id].Clone()
                } else {
                    ds.InPlaceIntersection(dom[p.Id])
                }
            }

            /* a block always dominates itself */
            ds.Set(uint(bb.Id))
            if !ds.Equal(dom[bb.Id]) {
                dom[bb.Id] = ds
                changed = true
            }
        }
    }

    /* Step 3: strip the block itself from its own set */
    for _, bb := range self.Blocks {
        bb.idom = nil
        bb.domOn = nil
        bb.df = bitset.New(nb)
        if dom[bb.Id] == nil {
            bb.doms = bitset.New(nb)
        } else {
            bb.doms = dom[bb.Id].Clear(uint(bb.Id))
        }
    }

    /* Step 4: the immediate dominator is the strict dominator closest to the block */
    for _, bb := range rpo[1:] {
        nd := bb.doms.Count()
        for i, ok := bb.doms.NextSet(0); ok; i, ok = bb.doms.NextSet(i + 1) {
            if self.Blocks[i].doms.Count() == nd - 1 {
                bb.idom = self.Blocks[i]
                break
            }
        }
    }

    /* dominator tree children, in block id order */
    for _, bb := range self.Blocks {
        if bb.idom != nil {
            bb.idom.domOn = append(bb.idom.domOn, bb)
        }
    }

    /* Step 5: dominance frontier, walking up from every predecessor */
    for _, bb := range rpo {
        for _, p := range bb.pred {
            if dom[p.Id] != nil {
                for r := p; r != nil && r != bb.idom; r = r.idom {
                    r.df.Set(uint(bb.Id))
                }
            }
        }
    }

    /* dominance is up to date */
    self.domok = true
}

// DomOK reports whether the dominance information is up to date.
func (self *Graph) DomOK() bool {
    return self.domok
}
