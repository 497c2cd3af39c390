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
)

// DomTreeIter walks a dominator subtree in post-order, children before parents.
type DomTreeIter struct {
    b *Block
    s *lane.Stack
    v map[*Block]struct{}
}

func newDomTreeIter(root *Block) *DomTreeIter {
    s := lane.NewStack()
    s.Push(root)

    /* start from the subtree root */
    return &DomTreeIter {
        s: s,
        v: map[*Block]struct{}{ root: {} },
    }
}

// IterDominated iterates over root and every block it dominates.
func (self *Graph) IterDominated(root *Block) *DomTreeIter {
    if !self.domok {
        panic("cfg: dominators are not computed")
    } else {
        return newDomTreeIter(root)
    }
}

func (self *DomTreeIter) Next() bool {
    var tail bool
    var this *Block

    /* scan until the stack is empty */
    for !self.s.Empty() {
        tail = true
        this = self.s.Head().(*Block)

        /* descend into the first unvisited child */
        for _, p := range this.domOn {
            if _, ok := self.v[p]; !ok {
                tail = false
                self.v[p] = struct{}{}
                self.s.Push(p)
                break
            }
        }

        /* all the children are visited, pop the current node */
        if tail {
            self.b = self.s.Pop().(*Block)
            return true
        }
    }

    /* clear the block pointer to indicate no more blocks */
    self.b = nil
    return false
}

func (self *DomTreeIter) Block() *Block {
    return self.b
}

func (self *DomTreeIter) ForEach(action func(bb *Block)) {
    for self.Next() {
        action(self.b)
    }
}

// CollectDominatedBy returns every block strictly dominated by root, in
// offset order.
func (self *Graph) CollectDominatedBy(root *Block) []*Block {
    var ret []*Block
    self.IterDominated(root).ForEach(func(bb *Block) {
        if bb != root {
            ret = append(ret, bb)
        }
    })

    /* offset order keeps handler bodies in source order */
    sortByOffset(ret)
    return ret
}
