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
)

func lastSub(r Region) Container {
    if subs := r.SubBlocks(); len(subs) == 0 {
        return nil
    } else {
        return subs[len(subs) - 1]
    }
}

// HasExitEdge reports whether the last block of the container has a
// successor and does not return.
func HasExitEdge(c Container) bool {
    if bb, r := dispatch(c); bb != nil {
        return len(bb.Successors()) != 0 && !bb.IsReturn()
    } else if v := lastSub(r); v == nil {
        return false
    } else {
        return HasExitEdge(v)
    }
}

// HasExitBlock reports whether the last block of the container has no
// successors at all.
func HasExitBlock(c Container) bool {
    if bb, r := dispatch(c); bb != nil {
        return len(bb.Successors()) == 0
    } else if v := lastSub(r); v == nil {
        return false
    } else {
        return HasExitBlock(v)
    }
}

func HasBreakInsn(c Container) bool {
    if bb, r := dispatch(c); bb != nil {
        p := bb.LastInsn()
        return p != nil && p.Op == ir.OP_break
    } else if v := lastSub(r); v == nil {
        return false
    } else {
        return HasBreakInsn(v)
    }
}

// LastInsn returns the instruction control leaves the container through.
// Branching regions have no single one.
func LastInsn(c Container) *ir.Insn {
    bb, r := dispatch(c)
    if bb != nil {
        return bb.LastInsn()
    }

    /* branching regions */
    switch r.(type) {
        case *If, *Switch: return nil
    }

    /* the last sub-container */
    if v := lastSub(r); v == nil {
        return nil
    } else {
        return LastInsn(v)
    }
}

func InsnsCount(c Container) int {
    if bb, r := dispatch(c); bb != nil {
        return len(bb.Insns)
    } else {
        n := 0
        for _, v := range r.SubBlocks() {
            n += InsnsCount(v)
        }
        return n
    }
}

func IsEmpty(c Container) bool {
    return !NotEmpty(c)
}

// NotEmpty reports whether any block in the container holds an instruction.
func NotEmpty(c Container) bool {
    if bb, r := dispatch(c); bb != nil {
        return len(bb.Insns) != 0
    } else {
        for _, v := range r.SubBlocks() {
            if NotEmpty(v) {
                return true
            }
        }
        return false
    }
}

// CollectBlocks adds every block of the container to dst.
func CollectBlocks(c Container, dst map[*cfg.Block]bool) {
    if bb, r := dispatch(c); bb != nil {
        dst[bb] = true
    } else {
        for _, v := range r.SubBlocks() {
            CollectBlocks(v, dst)
        }
    }
}

func ContainsBlock(c Container, bb *cfg.Block) bool {
    if b, r := dispatch(c); b != nil {
        return b == bb
    } else {
        for _, v := range r.SubBlocks() {
            if ContainsBlock(v, bb) {
                return true
            }
        }
        return false
    }
}

// IsDominatedBy reports whether dom dominates every block of the container.
// Detached blocks inserted by structuring are not part of the graph and do
// not take part.
func (self *Tree) IsDominatedBy(dom *cfg.Block, c Container) bool {
    if dom == c {
        return true
    }

    /* leaf or composite */
    if bb, r := dispatch(c); bb != nil {
        return bb.Detached() || self.Graph.IsDominatedBy(dom, bb)
    } else {
        for _, v := range r.SubBlocks() {
            if !self.IsDominatedBy(dom, v) {
                return false
            }
        }
        return true
    }
}

// HasPathThroughBlock reports whether every block of the container can be
// reached from bb.
func (self *Tree) HasPathThroughBlock(bb *cfg.Block, c Container) bool {
    if bb == c {
        return true
    }

    /* leaf or composite */
    if b, r := dispatch(c); b != nil {
        return b.Detached() || self.Graph.PathExists(bb, b)
    } else {
        for _, v := range r.SubBlocks() {
            if !self.HasPathThroughBlock(bb, v) {
                return false
            }
        }
        return true
    }
}
