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

package trycatch

import (
    `fmt`

    `github.com/cloudwego/regions/internal/attr`
    `github.com/cloudwego/regions/internal/ir`
)

// TryBlock is a guarded range together with the handlers covering it.
type TryBlock struct {
    Id         int
    Start      int
    End        int
    MergedInto *TryBlock
    outer      *TryBlock
    handlers   []*Handler
    insns      []*ir.Insn
    tag        *CatchAttr
}

func newTryBlock(id int, start int, end int) *TryBlock {
    ret := &TryBlock { Id: id, Start: start, End: end }
    ret.tag = &CatchAttr { TryBlock: ret }
    return ret
}

func (self *TryBlock) String() string {
    return fmt.Sprintf("try#%d[%04x, %04x)", self.Id, self.Start, self.End)
}

func (self *TryBlock) Handlers() []*Handler {
    return self.handlers
}

// Insns returns the instructions guarded by this try-block.
func (self *TryBlock) Insns() []*ir.Insn {
    return self.insns
}

// Tag returns the attribute value marking instructions and blocks of this
// try-block.
func (self *TryBlock) Tag() *CatchAttr {
    return self.tag
}

// Canonical follows merges to the try-block now holding this one's handlers.
func (self *TryBlock) Canonical() *TryBlock {
    p := self
    for p.MergedInto != nil {
        p = p.MergedInto
    }
    return p
}

// Outer returns the smallest live try-block enclosing this one's range,
// skipping ranges that were merged into it.
func (self *TryBlock) Outer() *TryBlock {
    tb := self.Canonical()
    for p := tb.outer; p != nil; p = p.outer {
        if c := p.Canonical(); c != tb {
            return c
        }
    }
    return nil
}

// Finally returns the handler detected as the finally clause, if any.
func (self *TryBlock) Finally() *Handler {
    for _, h := range self.handlers {
        if h.Finally {
            return h
        }
    }
    return nil
}

func (self *TryBlock) hasHandler(h *Handler) bool {
    for _, v := range self.handlers {
        if v == h {
            return true
        }
    }
    return false
}

func (self *TryBlock) addHandler(h *Handler) {
    if !self.hasHandler(h) {
        self.handlers = append(self.handlers, h)
    }
}

func (self *TryBlock) addInsn(p *ir.Insn) {
    p.AddAttr(self.tag)
    self.insns = append(self.insns, p)
}

// Merge folds the other try-block into this one: handlers are reparented and
// guarded instructions retagged. Merging two try-blocks that already share a
// canonical try-block does nothing and returns false.
func (self *TryBlock) Merge(other *TryBlock) bool {
    dst := self.Canonical()
    src := other.Canonical()

    /* already one try-block */
    if dst == src {
        return false
    }

    /* reparent the handlers */
    for _, h := range src.handlers {
        if dst.addHandler(h); h.TryBlock == src {
            h.TryBlock = dst
        }
    }

    /* retag the guarded instructions */
    for _, p := range src.insns {
        if p.Get(attr.CatchBlock) == src.tag {
            dst.addInsn(p)
        }
    }

    /* the source is now an alias */
    src.handlers = nil
    src.insns = nil
    src.MergedInto = dst
    return true
}

// RemoveInsn takes the instruction out of its try-scope.
func (self *TryBlock) RemoveInsn(p *ir.Insn) bool {
    tb := self.Canonical()
    if p.Get(attr.CatchBlock) != tb.tag {
        return false
    }

    /* drop the tag and the membership */
    p.RemoveAttr(attr.CatchBlock)
    for i, v := range tb.insns {
        if v == p {
            tb.insns = append(tb.insns[:i], tb.insns[i + 1:]...)
            break
        }
    }
    return true
}

// CatchAttr is the try-scope tag of instructions, blocks and regions.
type CatchAttr struct {
    TryBlock *TryBlock
}

func (self *CatchAttr) AttrType() attr.Type {
    return attr.CatchBlock
}

func (self *CatchAttr) String() string {
    return "CATCH_BLOCK: " + self.TryBlock.String()
}

// TryOf returns the live try-block a node is tagged with, if any.
func TryOf(n *attr.Node) *TryBlock {
    if v := n.Get(attr.CatchBlock); v == nil {
        return nil
    } else {
        return v.(*CatchAttr).TryBlock.Canonical()
    }
}
