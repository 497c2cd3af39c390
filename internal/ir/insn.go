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

package ir

import (
    `fmt`
    `strings`

    `github.com/cloudwego/regions/internal/attr`
)

type Opcode byte

const (
    OP_nop Opcode = iota    // no operation
    OP_const                // Args[0] -> Result
    OP_move                 // Args[0] -> Result
    OP_arith                // Args[0] <op> Args[1] -> Result
    OP_invoke               // call, Args are the call arguments
    OP_if                   // if (Args[0] <Cmp> Args[1]) goto Target
    OP_goto                 // goto Target
    OP_switch               // switch (Args[0]) { Keys[i]: goto Targets[i] }
    OP_return               // return Args[0] if any
    OP_throw                // throw Args[0]
    OP_monitor_enter        // lock Args[0]
    OP_monitor_exit         // unlock Args[0]
    OP_move_exception       // caught exception -> Result
    OP_break                // structured break (inserted by structuring)
    OP_continue             // structured continue (inserted by structuring)
)

var _OpNames = [...]string {
    OP_nop            : "nop",
    OP_const          : "const",
    OP_move           : "move",
    OP_arith          : "arith",
    OP_invoke         : "invoke",
    OP_if             : "if",
    OP_goto           : "goto",
    OP_switch         : "switch",
    OP_return         : "return",
    OP_throw          : "throw",
    OP_monitor_enter  : "monitor-enter",
    OP_monitor_exit   : "monitor-exit",
    OP_move_exception : "move-exception",
    OP_break          : "break",
    OP_continue       : "continue",
}

func (self Opcode) String() string {
    if int(self) < len(_OpNames) {
        return _OpNames[self]
    } else {
        return fmt.Sprintf("op(%d)", self)
    }
}

type CmpOp uint8

const (
    EQ CmpOp = iota
    NE
    LT
    GE
    GT
    LE
)

var _CmpSymbols = [...]string {
    EQ: "==",
    NE: "!=",
    LT: "<",
    GE: ">=",
    GT: ">",
    LE: "<=",
}

var _CmpInverse = [...]CmpOp {
    EQ: NE,
    NE: EQ,
    LT: GE,
    GE: LT,
    GT: LE,
    LE: GT,
}

func (self CmpOp) Invert() CmpOp {
    return _CmpInverse[self]
}

// Ordering reports whether the operator compares by order rather than equality.
func (self CmpOp) Ordering() bool {
    return self >= LT
}

func (self CmpOp) Symbol() string {
    return _CmpSymbols[self]
}

type Insn struct {
    attr.Node
    Op      Opcode
    Offset  int
    Result  *Reg
    Args    []Arg
    Cmp     CmpOp
    Target  int
    Keys    []int64
    Targets []int
}

func (self *Insn) IsBranch() bool {
    return self.Op == OP_if || self.Op == OP_goto || self.Op == OP_switch
}

// IsExit reports whether control never falls out of the instruction.
func (self *Insn) IsExit() bool {
    return self.Op == OP_return || self.Op == OP_throw
}

func (self *Insn) String() string {
    var args []string
    for _, v := range self.Args {
        if v == nil {
            args = append(args, "<nil>")
        } else {
            args = append(args, v.String())
        }
    }

    /* malformed operands still need to be printable for diagnosis */
    for len(args) < 2 && (self.Op == OP_if || self.Op == OP_switch) {
        args = append(args, "?")
    }

    /* instruction specific formats */
    switch self.Op {
        case OP_if: {
            return fmt.Sprintf("%04x: if %s %s %s goto %04x", self.Offset, args[0], self.Cmp.Symbol(), args[1], self.Target)
        }
        case OP_goto: {
            return fmt.Sprintf("%04x: goto %04x", self.Offset, self.Target)
        }
        case OP_switch: {
            var cases []string
            for i, k := range self.Keys {
                cases = append(cases, fmt.Sprintf("%d: %04x", k, self.Targets[i]))
            }
            return fmt.Sprintf("%04x: switch %s {%s}", self.Offset, args[0], strings.Join(cases, ", "))
        }
    }

    /* generic format */
    if self.Result == nil {
        return fmt.Sprintf("%04x: %s %s", self.Offset, self.Op, strings.Join(args, ", "))
    } else {
        return fmt.Sprintf("%04x: %s = %s %s", self.Offset, self.Result, self.Op, strings.Join(args, ", "))
    }
}
