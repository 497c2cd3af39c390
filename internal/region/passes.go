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
    `github.com/cloudwego/regions/internal/cond`
    `github.com/cloudwego/regions/internal/ir`
)

type Pass interface {
    Apply(*Tree)
}

type _PassDescriptor struct {
    pass Pass
    desc string
}

var _passes = [...]_PassDescriptor {
    { desc: "Condition Simplification"    , pass: new(CondSimplify) },
    { desc: "Branch Swap"                 , pass: new(BranchSwap) },
    { desc: "Compound Condition Recovery" , pass: new(CondMerge) },
    { desc: "Condition Simplification"    , pass: new(CondSimplify) },
}

// Normalize rewrites the tree into a more natural form. It never moves a
// block out of the tree.
func Normalize(t *Tree) {
    for _, p := range _passes {
        p.pass.Apply(t)
    }
}

// ifsBottomUp returns every if region, nested ones before their ancestors.
func ifsBottomUp(t *Tree) []*If {
    var ret []*If
    t.Regions(func(r Region) {
        if v, ok := r.(*If); ok {
            ret = append(ret, v)
        }
    })

    /* ancestors are visited first, reverse the order */
    for i, j := 0, len(ret) - 1; i < j; i, j = i + 1, j - 1 {
        ret[i], ret[j] = ret[j], ret[i]
    }
    return ret
}

// CondSimplify simplifies the conditions of every if and loop region.
type CondSimplify struct{}

func (CondSimplify) Apply(t *Tree) {
    t.Regions(func(r Region) {
        switch v := r.(type) {
            case *If: {
                v.SimplifyCondition()
            }
            case *Loop: {
                if v.Cond != nil {
                    v.Cond = cond.Simplify(v.Cond)
                }
            }
        }
    })
}

// BranchSwap inverts if regions whose then branch is empty while the else
// branch is not.
type BranchSwap struct{}

func (BranchSwap) Apply(t *Tree) {
    for _, r := range ifsBottomUp(t) {
        if r.Else != nil && NotEmpty(r.Else) && (r.Then == nil || IsEmpty(r.Then)) {
            r.Invert()
        }
    }
}

// CondMerge recovers compound conditions: an if whose only branch is
// another if without else becomes one if over the conjunction, and adjacent
// ifs without else that jump to the same place become one if over the
// disjunction.
type CondMerge struct{}

func (CondMerge) Apply(t *Tree) {
    for _, r := range ifsBottomUp(t) {
        for r.Else == nil {
            if v, ok := r.Then.(*If); !ok || v.Else != nil {
                break
            } else {
                r.absorb(v)
            }
        }
    }

    /* sibling jumps, sub-containers are visited after their parent */
    t.Regions(func(r Region) {
        if s := seqOf(r); s != nil {
            s.foldJumps()
        }
    })
}

func seqOf(r Region) *Sequence {
    switch v := r.(type) {
        case *Sequence  : return v
        case *Synthetic : return &v.Sequence
        default         : return nil
    }
}

// jumpOf returns the break or continue an if without else consists of.
func jumpOf(c Container) ir.Opcode {
    if r, ok := c.(*If); !ok || r.Else != nil || r.Then == nil {
        return ir.OP_nop
    } else if bb, ok := r.Then.(*cfg.Block); !ok || !bb.Detached() || len(bb.Insns) != 1 {
        return ir.OP_nop
    } else if op := bb.Insns[0].Op; op == ir.OP_break || op == ir.OP_continue {
        return op
    } else {
        return ir.OP_nop
    }
}

func (self *Sequence) foldJumps() {
    for i := 0; i < len(self.blocks) - 1; {
        if op := jumpOf(self.blocks[i]); op == ir.OP_nop || jumpOf(self.blocks[i + 1]) != op {
            i++
        } else {
            self.blocks[i].(*If).either(self.blocks[i + 1].(*If))
            self.blocks = append(self.blocks[:i + 1], self.blocks[i + 2:]...)
        }
    }
}
