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

    `github.com/bits-and-blooms/bitset`
    `github.com/cloudwego/regions/internal/attr`
    `github.com/cloudwego/regions/internal/ir`
)

type Block struct {
    attr.Node
    Id     int
    Offset int
    Insns  []*ir.Insn

    pred   []*Block
    succ   []*Block
    clean  []*Block
    stale  bool
    locked bool

    doms   *bitset.BitSet
    df     *bitset.BitSet
    idom   *Block
    ipdom  *Block
    domOn  []*Block
}

func newBlock(id int, offset int) *Block {
    return &Block {
        Id     : id,
        Offset : offset,
        stale  : true,
    }
}

func (self *Block) String() string {
    return fmt.Sprintf("B:%d:%04x", self.Id, self.Offset)
}

// Predecessors returns the incoming edges. The slice must not be modified.
func (self *Block) Predecessors() []*Block {
    return self.pred
}

// Successors returns the outgoing edges in branch order, duplicates included.
// The slice must not be modified.
func (self *Block) Successors() []*Block {
    return self.succ
}

// CleanSuccessors returns the successors minus exception handler entries and
// loop back edges. The view must have been refreshed with UpdateCleanSuccessors
// after the last mutation that affects it.
func (self *Block) CleanSuccessors() []*Block {
    if self.stale {
        panic("cfg: stale clean successors of block " + self.String())
    } else {
        return self.clean
    }
}

// CleanStale reports whether the clean successor view needs a refresh.
func (self *Block) CleanStale() bool {
    return self.stale
}

func (self *Block) UpdateCleanSuccessors() {
    self.clean = cleanSuccessors(self)
    self.stale = false
}

func isHandlerEdge(b *Block) bool {
    if b.Contains(attr.ExcHandler) {
        return true
    } else {
        return b.Has(attr.Synthetic) && len(b.succ) == 1 && b.succ[0].Contains(attr.ExcHandler)
    }
}

func cleanSuccessors(bb *Block) []*Block {
    var rem map[*Block]bool
    var ret []*Block

    /* exception handlers, directly or through a synthetic hop */
    for _, p := range bb.succ {
        if isHandlerEdge(p) {
            if rem == nil { rem = make(map[*Block]bool) }
            rem[p] = true
        }
    }

    /* back edges of the loops this block closes */
    if bb.Has(attr.LoopEnd) {
        for _, v := range bb.GetAll(attr.Loop) {
            if lp := v.(*LoopInfo); lp.End == bb {
                if rem == nil { rem = make(map[*Block]bool) }
                rem[lp.Start] = true
            }
        }
    }

    /* nothing to remove */
    if rem == nil {
        return bb.succ
    }

    /* copy the remaining edges */
    for _, p := range bb.succ {
        if !rem[p] {
            ret = append(ret, p)
        }
    }
    return ret
}

func (self *Block) invalidate() {
    self.stale = true
}

// invalidatePreds marks every block whose clean view includes this block
// through a direct or a synthetic edge.
func (self *Block) invalidatePreds() {
    for _, p := range self.pred {
        p.invalidate()
        if p.Has(attr.Synthetic) {
            for _, q := range p.pred {
                q.invalidate()
            }
        }
    }
}

func (self *Block) AddAttr(a attr.Attr) {
    self.Node.AddAttr(a)
    self.attrChanged(a.AttrType())
}

func (self *Block) RemoveAttr(t attr.Type) {
    self.Node.RemoveAttr(t)
    self.attrChanged(t)
}

func (self *Block) Add(f attr.Flag) {
    self.Node.Add(f)
    self.flagChanged(f)
}

func (self *Block) Remove(f attr.Flag) {
    self.Node.Remove(f)
    self.flagChanged(f)
}

func (self *Block) attrChanged(t attr.Type) {
    switch t {
        case attr.ExcHandler : self.invalidatePreds()
        case attr.Loop       : self.invalidate()
    }
}

func (self *Block) flagChanged(f attr.Flag) {
    if f & attr.Synthetic != 0 {
        self.invalidatePreds()
    }
    if f & attr.LoopEnd != 0 {
        self.invalidate()
    }
}

func (self *Block) checkMutable() {
    if self.locked {
        panic("cfg: block " + self.String() + " is locked")
    }
}

func (self *Block) IsReturn() bool {
    return self.Has(attr.Return)
}

func (self *Block) IsSynthetic() bool {
    return self.Has(attr.Synthetic)
}

func (self *Block) LastInsn() *ir.Insn {
    if n := len(self.Insns); n == 0 {
        return nil
    } else {
        return self.Insns[n - 1]
    }
}

// RemoveInsn drops the instruction from the block, reporting whether it was found.
func (self *Block) RemoveInsn(p *ir.Insn) bool {
    for i, v := range self.Insns {
        if v == p {
            self.Insns = append(self.Insns[:i], self.Insns[i + 1:]...)
            p.Add(attr.Removed)
            return true
        }
    }
    return false
}

// IsDominator reports whether dom strictly dominates this block.
func (self *Block) IsDominator(dom *Block) bool {
    if self.doms == nil {
        panic("cfg: dominators of block " + self.String() + " are not computed")
    } else {
        return self.doms.Test(uint(dom.Id))
    }
}

// Dominators is the set of strict dominators, indexed by block id.
func (self *Block) Dominators() *bitset.BitSet {
    return self.doms
}

func (self *Block) DomFrontier() *bitset.BitSet {
    return self.df
}

// IDom returns the immediate dominator, nil for the entry block.
func (self *Block) IDom() *Block {
    return self.idom
}

// Dominates returns the children of this block in the dominator tree.
func (self *Block) Dominates() []*Block {
    return self.domOn
}

// NewDetached creates a block that is not part of any graph. Structuring uses
// it to carry the instructions it inserts, such as loop breaks. A detached
// block has no edges and is dominated by nothing.
func NewDetached(offset int, insns ...*ir.Insn) *Block {
    ret := newBlock(-1, offset)
    ret.Insns = insns
    ret.doms = bitset.New(0)
    ret.df = bitset.New(0)
    ret.Node.Add(attr.Synthetic)
    ret.UpdateCleanSuccessors()
    return ret
}

func (self *Block) Detached() bool {
    return self.Id < 0
}
