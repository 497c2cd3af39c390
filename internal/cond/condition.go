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

// Package cond models the boolean conditions of if regions. A condition tree
// is owned by one region at a time; combining trees moves the subtrees.
package cond

import (
    `fmt`
    `strings`

    `github.com/cloudwego/regions/internal/cfg`
    `github.com/cloudwego/regions/internal/ir`
    `github.com/cloudwego/regions/internal/utils`
)

type Mode uint8

const (
    Compare Mode = iota
    Not
    And
    Or
)

func (self Mode) String() string {
    switch self {
        case Compare : return "COMPARE"
        case Not     : return "NOT"
        case And     : return "AND"
        case Or      : return "OR"
        default      : return "UNKNOWN"
    }
}

// Cmp is a leaf comparison "A <Op> B".
type Cmp struct {
    Op ir.CmpOp
    A  ir.Arg
    B  ir.Arg
}

// Foldable reports whether negating the comparison can be expressed by
// inverting its operator. Equality always can, ordering only over totally
// ordered operands.
func (self *Cmp) Foldable() bool {
    return !self.Op.Ordering() || (self.A.Type().TotalOrder() && self.B.Type().TotalOrder())
}

func (self *Cmp) String() string {
    return fmt.Sprintf("%s %s %s", self.A, self.Op.Symbol(), self.B)
}

type Condition struct {
    Mode Mode
    Cmp  *Cmp
    Args []*Condition
}

func NewCompare(op ir.CmpOp, a ir.Arg, b ir.Arg) *Condition {
    return &Condition { Mode: Compare, Cmp: &Cmp { Op: op, A: a, B: b } }
}

func NewNot(c *Condition) *Condition {
    return &Condition { Mode: Not, Args: []*Condition { c } }
}

// Merge combines two conditions with And or Or. Both trees become part of
// the result and must not be used by their previous owners afterwards.
func Merge(mode Mode, a *Condition, b *Condition) *Condition {
    if mode != And && mode != Or {
        panic("cond: invalid merge mode: " + mode.String())
    } else {
        return &Condition { Mode: mode, Args: []*Condition { a, b } }
    }
}

// FromBranch builds the condition of a block holding exactly one if
// instruction, true when the branch is taken.
func FromBranch(bb *cfg.Block) (*Condition, error) {
    if len(bb.Insns) != 1 {
        return nil, utils.EInvariant(bb, "branch block has %d instructions", len(bb.Insns))
    }

    /* must be a two-way branch */
    p := bb.Insns[0]
    if p.Op != ir.OP_if {
        return nil, utils.EInvariant(bb, "not a two-way branch: %s", p)
    }

    /* both operands must be resolved */
    if len(p.Args) != 2 || p.Args[0] == nil || p.Args[1] == nil {
        return nil, utils.EMalformed(bb, "condition references an unresolved operand: %s", p)
    }

    /* construct the comparison */
    return NewCompare(p.Cmp, p.Args[0], p.Args[1]), nil
}

// Size is the number of nodes in the tree.
func (self *Condition) Size() int {
    n := 1
    for _, v := range self.Args {
        n += v.Size()
    }
    return n
}

func (self *Condition) String() string {
    switch self.Mode {
        case Compare : return self.Cmp.String()
        case Not     : return "!(" + self.Args[0].String() + ")"
        case And     : return self.join(" && ")
        case Or      : return self.join(" || ")
        default      : panic("cond: invalid condition mode")
    }
}

func (self *Condition) join(op string) string {
    buf := make([]string, 0, len(self.Args))
    for _, v := range self.Args {
        buf = append(buf, v.String())
    }
    return "(" + strings.Join(buf, op) + ")"
}

// Equal reports structural equality. Registers match by number and literals
// by value and type.
func Equal(a *Condition, b *Condition) bool {
    if a == b {
        return true
    }

    /* mode and arity */
    if a.Mode != b.Mode || len(a.Args) != len(b.Args) {
        return false
    }

    /* leaf comparison */
    if a.Mode == Compare {
        return a.Cmp.Op == b.Cmp.Op && argEqual(a.Cmp.A, b.Cmp.A) && argEqual(a.Cmp.B, b.Cmp.B)
    }

    /* children, in order */
    for i, v := range a.Args {
        if !Equal(v, b.Args[i]) {
            return false
        }
    }
    return true
}

func argEqual(a ir.Arg, b ir.Arg) bool {
    switch x := a.(type) {
        case *ir.Reg : return x.SameReg(b)
        case *ir.Lit : return litEqual(x, b)
        default      : return a == b
    }
}

func litEqual(x *ir.Lit, b ir.Arg) bool {
    if y, ok := b.(*ir.Lit); !ok {
        return false
    } else {
        return x.V == y.V && x.T == y.T
    }
}
