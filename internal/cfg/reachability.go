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
    `sort`

    `gonum.org/v1/gonum/graph`
    `gonum.org/v1/gonum/graph/simple`
    `gonum.org/v1/gonum/graph/topo`
)

func sortByOffset(bbs []*Block) {
    sort.Slice(bbs, func(i int, j int) bool { return bbs[i].Offset < bbs[j].Offset })
}

// View returns a gonum view of the edges, rebuilt after every edge mutation.
// Self loops and repeated edges are folded away.
func (self *Graph) View() graph.Directed {
    if self.view == nil {
        self.view = self.buildView()
    }
    return self.view
}

func (self *Graph) buildView() *simple.DirectedGraph {
    g := simple.NewDirectedGraph()
    for _, bb := range self.Blocks {
        g.AddNode(simple.Node(bb.Id))
    }

    /* add every distinct edge */
    for _, bb := range self.Blocks {
        for _, p := range bb.succ {
            if p != bb && !g.HasEdgeFromTo(int64(bb.Id), int64(p.Id)) {
                g.SetEdge(simple.Edge { F: simple.Node(bb.Id), T: simple.Node(p.Id) })
            }
        }
    }
    return g
}

// PathExists reports whether a path of zero or more edges leads from one
// block to the other. Detached blocks are reachable only from themselves.
func (self *Graph) PathExists(from *Block, to *Block) bool {
    if from == to {
        return true
    } else if from.Detached() || to.Detached() {
        return false
    } else {
        return topo.PathExistsIn(self.View(), simple.Node(from.Id), simple.Node(to.Id))
    }
}
