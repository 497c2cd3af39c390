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
    `gonum.org/v1/gonum/graph/flow`
    `gonum.org/v1/gonum/graph/simple`
)

// ComputePostDominators finds the immediate post-dominator of every block
// over the clean successors, so back edges and exception edges do not count.
// Blocks without clean successors lead to a virtual exit. A block that only
// reaches the exit directly, or never reaches it, has no post-dominator.
//
// The result reflects the clean successors at the time of the call and is
// not invalidated by later edits.
func (self *Graph) ComputePostDominators() {
    nb := int64(len(self.Blocks))
    rg := simple.NewDirectedGraph()
    exit := simple.Node(nb)

    /* one node per block plus the virtual exit */
    rg.AddNode(exit)
    for _, bb := range self.Blocks {
        rg.AddNode(simple.Node(bb.Id))
    }

    /* reversed clean edges, exits hang off the virtual node */
    for _, bb := range self.Blocks {
        succ := bb.CleanSuccessors()
        if len(succ) == 0 {
            rg.SetEdge(simple.Edge { F: exit, T: simple.Node(bb.Id) })
        }

        /* self loops and repeated edges add nothing */
        for _, p := range succ {
            if p != bb && !rg.HasEdgeFromTo(int64(p.Id), int64(bb.Id)) {
                rg.SetEdge(simple.Edge { F: simple.Node(p.Id), T: simple.Node(bb.Id) })
            }
        }
    }

    /* dominators of the reversed graph are post-dominators */
    dt := flow.Dominators(exit, rg)
    for _, bb := range self.Blocks {
        bb.ipdom = nil
        if v := dt.DominatorOf(int64(bb.Id)); v != nil && v.ID() != nb {
            bb.ipdom = self.Blocks[v.ID()]
        }
    }
}

// IPDom returns the immediate post-dominator computed by the last call to
// ComputePostDominators.
func (self *Block) IPDom() *Block {
    return self.ipdom
}
