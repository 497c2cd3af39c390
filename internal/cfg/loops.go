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
    `fmt`
    `sort`

    `github.com/cloudwego/regions/internal/attr`
    `github.com/oleiade/lane`
)

// LoopInfo describes one natural loop, identified by its back edge End -> Start.
type LoopInfo struct {
    Start  *Block
    End    *Block
    blocks []*Block
}

func (self *LoopInfo) AttrType() attr.Type {
    return attr.Loop
}

func (self *LoopInfo) String() string {
    return fmt.Sprintf("loop(%s <- %s)", self.Start, self.End)
}

// Blocks returns the loop body in block id order, header included.
func (self *LoopInfo) Blocks() []*Block {
    return self.blocks
}

func (self *LoopInfo) Contains(bb *Block) bool {
    i := sort.Search(len(self.blocks), func(i int) bool { return self.blocks[i].Id >= bb.Id })
    return i < len(self.blocks) && self.blocks[i] == bb
}

// Exits returns the body blocks having a successor outside of the loop.
func (self *LoopInfo) Exits() []*Block {
    var ret []*Block
    for _, bb := range self.blocks {
        for _, p := range bb.succ {
            if !self.Contains(p) {
                ret = append(ret, bb)
                break
            }
        }
    }
    return ret
}

// MarkLoops finds every back edge b -> h where h dominates b (or h is b
// itself), and tags both ends with the loop. Requires dominators.
func (self *Graph) MarkLoops() []*LoopInfo {
    var ret []*LoopInfo
    seen := make(map[[2]int]bool)

    /* dominators must be valid */
    if !self.domok {
        panic("cfg: dominators are not computed")
    }

    /* scan every edge */
    for _, bb := range self.Blocks {
        for _, h := range bb.succ {
            if h == bb || bb.IsDominator(h) {
                if key := [2]int { h.Id, bb.Id }; !seen[key] {
                    seen[key] = true
                    ret = append(ret, self.makeLoop(h, bb))
                }
            }
        }
    }

    /* tag the loop ends */
    for _, lp := range ret {
        lp.Start.Add(attr.LoopStart)
        lp.Start.AddAttr(lp)
        lp.End.Add(attr.LoopEnd)
        if lp.End != lp.Start {
            lp.End.AddAttr(lp)
        }
    }
    return ret
}

func (self *Graph) makeLoop(start *Block, end *Block) *LoopInfo {
    q := lane.NewQueue()
    vis := map[*Block]bool { start: true, end: true }

    /* walk backwards from the back edge source, stopping at the header */
    if end != start {
        q.Enqueue(end)
    }

    /* collect the body */
    for !q.Empty() {
        for _, p := range q.Dequeue().(*Block).pred {
            if !vis[p] {
                vis[p] = true
                q.Enqueue(p)
            }
        }
    }

    /* sort by block id */
    blocks := make([]*Block, 0, len(vis))
    for bb := range vis {
        blocks = append(blocks, bb)
    }

    /* construct the loop */
    sort.Slice(blocks, func(i int, j int) bool { return blocks[i].Id < blocks[j].Id })
    return &LoopInfo { Start: start, End: end, blocks: blocks }
}

// LoopsOf returns the loops headed or closed by the block, outermost first.
func LoopsOf(bb *Block) []*LoopInfo {
    var ret []*LoopInfo
    for _, v := range bb.GetAll(attr.Loop) {
        ret = append(ret, v.(*LoopInfo))
    }

    /* larger bodies enclose smaller ones */
    sort.SliceStable(ret, func(i int, j int) bool { return len(ret[i].blocks) > len(ret[j].blocks) })
    return ret
}
