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

package cond

import (
    `testing`

    `github.com/brianvoe/gofakeit/v6`
    `github.com/cloudwego/regions/internal/cfg`
    `github.com/cloudwego/regions/internal/ir`
    `github.com/cloudwego/regions/internal/utils`
    `github.com/stretchr/testify/require`
)

var (
    x = ir.Named(0, "x", ir.Int)
    y = ir.Named(1, "y", ir.Int)
    f = ir.Named(2, "f", ir.Float)
    g = ir.Named(3, "g", ir.Float)
    o = ir.Named(4, "o", ir.Object("java.lang.String"))
)

func zero(t ir.Type) *ir.Lit {
    return ir.L(0, t)
}

func branchBlock(t *testing.T, insns ...*ir.Insn) *cfg.Block {
    gr, err := cfg.Build([]cfg.Raw {
        { Offset: 0, Insns: insns, Succ: []int { 4, 8 } },
        { Offset: 4 },
        { Offset: 8 },
    })
    require.NoError(t, err)
    return gr.Entry
}

func TestCond_FromBranch(t *testing.T) {
    c, err := FromBranch(branchBlock(t, ir.IfZ(0, x, ir.GT, 4)))
    require.NoError(t, err)
    require.Equal(t, "x > 0", c.String())

    /* more than one instruction */
    _, err = FromBranch(branchBlock(t, ir.Nop(0), ir.IfZ(1, x, ir.GT, 4)))
    require.Equal(t, utils.InvariantViolation, err.(*utils.AnalysisError).Kind)

    /* not a branch */
    _, err = FromBranch(branchBlock(t, ir.Goto(0, 4)))
    require.Equal(t, utils.InvariantViolation, err.(*utils.AnalysisError).Kind)

    /* unresolved operand */
    _, err = FromBranch(branchBlock(t, ir.If(0, x, ir.EQ, nil, 4)))
    require.Equal(t, utils.MalformedControlFlow, err.(*utils.AnalysisError).Kind)
}

func TestCond_Simplify(t *testing.T) {
    tests := []struct {
        name string
        cond *Condition
        want string
    }{
        {
            name: "double negation",
            cond: NewNot(NewNot(NewCompare(ir.LT, f, g))),
            want: "f < g",
        },
        {
            name: "fold ordered comparison",
            cond: NewNot(NewCompare(ir.LT, x, y)),
            want: "x >= y",
        },
        {
            name: "keep unordered comparison",
            cond: NewNot(NewCompare(ir.LT, f, g)),
            want: "!(f < g)",
        },
        {
            name: "fold equality on any type",
            cond: NewNot(NewCompare(ir.EQ, o, zero(o.T))),
            want: "o != null",
        },
        {
            name: "flatten chains",
            cond: Merge(And, Merge(And, NewCompare(ir.GT, x, zero(ir.Int)), NewCompare(ir.NE, y, zero(ir.Int))), NewCompare(ir.LT, f, g)),
            want: "(x > 0 && y != 0 && f < g)",
        },
        {
            name: "de morgan when smaller",
            cond: NewNot(Merge(Or, NewCompare(ir.GT, x, zero(ir.Int)), NewNot(NewCompare(ir.LT, f, g)))),
            want: "(x <= 0 && f < g)",
        },
        {
            name: "no de morgan when larger",
            cond: NewNot(Merge(Or, NewCompare(ir.LT, f, g), NewCompare(ir.GT, f, g))),
            want: "!((f < g || f > g))",
        },
        {
            name: "nested rules",
            cond: Merge(Or, NewNot(NewNot(Merge(Or, NewCompare(ir.EQ, x, y), NewCompare(ir.EQ, y, x)))), NewNot(NewCompare(ir.GE, x, y))),
            want: "(x == y || y == x || x < y)",
        },
    }
    for _, tc := range tests {
        t.Run(tc.name, func(t *testing.T) {
            size := tc.cond.Size()
            ret := Simplify(tc.cond)
            require.Equal(t, tc.want, ret.String())
            require.LessOrEqual(t, ret.Size(), size)
            require.Same(t, ret, Simplify(ret))
        })
    }
}

func TestCond_SimplifyUnchanged(t *testing.T) {
    c := Merge(And, NewCompare(ir.GT, x, y), NewNot(NewCompare(ir.LT, f, g)))
    require.Same(t, c, Simplify(c))
    l := NewCompare(ir.EQ, x, y)
    require.Same(t, l, Simplify(l))
}

func TestCond_Invert(t *testing.T) {
    c := NewCompare(ir.GT, x, zero(ir.Int))
    require.Equal(t, "x <= 0", Invert(c).String())
    require.True(t, Equal(c, Invert(Invert(c))))

    /* unordered operands are wrapped */
    u := NewCompare(ir.LT, f, g)
    require.Equal(t, "!(f < g)", Invert(u).String())
    require.Same(t, u, Invert(Invert(u)))

    /* chains are negated as a whole and pushed down by simplification */
    a := Merge(And, NewCompare(ir.GT, x, zero(ir.Int)), NewCompare(ir.EQ, y, zero(ir.Int)))
    require.Equal(t, "(x <= 0 || y != 0)", Simplify(Invert(a)).String())
    require.Same(t, a, Invert(Invert(a)))
}

func genCond(fk *gofakeit.Faker, depth int) *Condition {
    if depth == 0 || fk.Number(0, 3) == 0 {
        tv := ir.Int
        if fk.Bool() {
            tv = ir.Float
        }
        return NewCompare(ir.CmpOp(fk.Number(0, 5)), ir.R(fk.Number(0, 3), tv), ir.L(int64(fk.Number(0, 9)), tv))
    }
    switch fk.Number(0, 2) {
        case 0  : return NewNot(genCond(fk, depth - 1))
        case 1  : return Merge(And, genCond(fk, depth - 1), genCond(fk, depth - 1))
        default : return Merge(Or, genCond(fk, depth - 1), genCond(fk, depth - 1))
    }
}

func TestCond_InvertInvolution(t *testing.T) {
    fk := gofakeit.New(42)
    for i := 0; i < 500; i++ {
        src := genCond(fk, 5)
        c := Simplify(src)
        require.LessOrEqual(t, c.Size(), src.Size())
        require.Same(t, c, Simplify(c), "not a fixpoint: %s", c)
        require.True(t, Equal(c, Invert(Invert(c))), "%s != %s", c, Invert(Invert(c)))
    }
}

func TestCond_Merge(t *testing.T) {
    a := NewCompare(ir.GT, x, y)
    b := NewCompare(ir.LT, x, y)
    c := Merge(Or, a, b)
    require.Same(t, a, c.Args[0])
    require.Same(t, b, c.Args[1])
    require.Equal(t, 3, c.Size())
    require.Panics(t, func() { Merge(Not, a, b) })
}
