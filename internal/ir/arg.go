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
)

type Arg interface {
    fmt.Stringer
    Type() Type
}

type Reg struct {
    N    int
    Name string
    T    Type
}

func R(n int, t Type) *Reg {
    return &Reg { N: n, T: t }
}

func Named(n int, name string, t Type) *Reg {
    return &Reg { N: n, Name: name, T: t }
}

func (self *Reg) Type() Type {
    return self.T
}

func (self *Reg) String() string {
    if self.Name != "" {
        return self.Name
    } else {
        return fmt.Sprintf("r%d", self.N)
    }
}

// SameReg reports whether both operands name the same register.
func (self *Reg) SameReg(other Arg) bool {
    if r, ok := other.(*Reg); !ok {
        return false
    } else {
        return r.N == self.N
    }
}

type Lit struct {
    V int64
    T Type
}

func L(v int64, t Type) *Lit {
    return &Lit { V: v, T: t }
}

func (self *Lit) Type() Type {
    return self.T
}

func (self *Lit) String() string {
    if self.T.K == K_boolean {
        return fmt.Sprint(self.V != 0)
    } else if self.T.K == K_object && self.V == 0 {
        return "null"
    } else {
        return fmt.Sprint(self.V)
    }
}
