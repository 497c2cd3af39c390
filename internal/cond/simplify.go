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
    `github.com/cloudwego/regions/internal/opts`
)

// Simplify rewrites the condition until no rule applies. Every rule removes
// at least one node, so the number of passes is bounded by the tree size.
// The condition itself is returned when nothing changed.
func Simplify(c *Condition) *Condition {
    n := c.Size()
    for i := 0; i < n && i < opts.MaxCondPasses; i++ {
        if r := simplify(c); r == c {
            break
        } else {
            c = r
        }
    }
    return c
}

func simplify(c *Condition) *Condition {
    switch c.Mode {
        case Compare : return c
        case Not     : return simplifyNot(c)
        case And, Or : return simplifyChain(c)
        default      : panic("cond: invalid condition mode")
    }
}

func simplifyNot(c *Condition) *Condition {
    x := simplify(c.Args[0])

    /* rules over the operand */
    switch x.Mode {
        case Not: {
            return x.Args[0]
        }
        case Compare: {
            if x.Cmp.Foldable() {
                return NewCompare(x.Cmp.Op.Invert(), x.Cmp.A, x.Cmp.B)
            }
        }
        case And, Or: {
            if r := pushNot(x); r.Size() < x.Size() + 1 {
                return r
            }
        }
    }

    /* only the operand changed */
    if x == c.Args[0] {
        return c
    } else {
        return NewNot(x)
    }
}

// pushNot applies De Morgan's law to the negation of x.
func pushNot(x *Condition) *Condition {
    args := make([]*Condition, 0, len(x.Args))
    for _, v := range x.Args {
        args = append(args, Invert(v))
    }

    /* swap the operator */
    if x.Mode == And {
        return &Condition { Mode: Or, Args: args }
    } else {
        return &Condition { Mode: And, Args: args }
    }
}

func simplifyChain(c *Condition) *Condition {
    mod := false
    args := make([]*Condition, 0, len(c.Args))

    /* simplify the operands, flattening nested chains of the same operator */
    for _, v := range c.Args {
        if x := simplify(v); x.Mode == c.Mode {
            mod = true
            args = append(args, x.Args...)
        } else {
            mod = mod || x != v
            args = append(args, x)
        }
    }

    /* nothing changed */
    if !mod {
        return c
    } else {
        return &Condition { Mode: c.Mode, Args: args }
    }
}

// Invert returns the negation of c. Comparisons fold into the inverted
// operator when possible, a negation gives back its operand, and anything
// else is wrapped in a negation for Simplify to push down where it pays off.
func Invert(c *Condition) *Condition {
    switch c.Mode {
        case Compare: {
            if c.Cmp.Foldable() {
                return NewCompare(c.Cmp.Op.Invert(), c.Cmp.A, c.Cmp.B)
            } else {
                return NewNot(c)
            }
        }
        case Not: {
            return c.Args[0]
        }
        case And, Or: {
            return NewNot(c)
        }
        default: {
            panic("cond: invalid condition mode")
        }
    }
}
