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

func Nop(off int) *Insn {
    return &Insn { Op: OP_nop, Offset: off }
}

func Const(off int, r *Reg, v *Lit) *Insn {
    return &Insn { Op: OP_const, Offset: off, Result: r, Args: []Arg { v } }
}

func Move(off int, r *Reg, v Arg) *Insn {
    return &Insn { Op: OP_move, Offset: off, Result: r, Args: []Arg { v } }
}

func Arith(off int, r *Reg, x Arg, y Arg) *Insn {
    return &Insn { Op: OP_arith, Offset: off, Result: r, Args: []Arg { x, y } }
}

func Invoke(off int, args ...Arg) *Insn {
    return &Insn { Op: OP_invoke, Offset: off, Args: args }
}

func If(off int, x Arg, cmp CmpOp, y Arg, target int) *Insn {
    return &Insn { Op: OP_if, Offset: off, Args: []Arg { x, y }, Cmp: cmp, Target: target }
}

// IfZ compares x against the zero value of its own type.
func IfZ(off int, x Arg, cmp CmpOp, target int) *Insn {
    return If(off, x, cmp, L(0, x.Type()), target)
}

func Goto(off int, target int) *Insn {
    return &Insn { Op: OP_goto, Offset: off, Target: target }
}

func Switch(off int, x Arg, keys []int64, targets []int) *Insn {
    return &Insn { Op: OP_switch, Offset: off, Args: []Arg { x }, Keys: keys, Targets: targets }
}

func Return(off int, args ...Arg) *Insn {
    return &Insn { Op: OP_return, Offset: off, Args: args }
}

func Throw(off int, x Arg) *Insn {
    return &Insn { Op: OP_throw, Offset: off, Args: []Arg { x } }
}

func MonitorEnter(off int, x Arg) *Insn {
    return &Insn { Op: OP_monitor_enter, Offset: off, Args: []Arg { x } }
}

func MonitorExit(off int, x Arg) *Insn {
    return &Insn { Op: OP_monitor_exit, Offset: off, Args: []Arg { x } }
}

func MoveException(off int, r *Reg) *Insn {
    return &Insn { Op: OP_move_exception, Offset: off, Result: r }
}

func Break(off int) *Insn {
    return &Insn { Op: OP_break, Offset: off }
}

func Continue(off int) *Insn {
    return &Insn { Op: OP_continue, Offset: off }
}
