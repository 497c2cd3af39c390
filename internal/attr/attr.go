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

// Package attr is the attribute layer shared by instructions, blocks and regions.
// Passes add flags and typed attributes to a node; a node never drops an
// attribute it did not add unless asked to explicitly.
package attr

import (
    `strings`
)

type Flag uint32

const (
    DontInline Flag = 1 << iota
    Synthetic
    Return
    LoopStart
    LoopEnd
    ExcHandlerRegion
    FinallyHandler
    Removed
)

var _FlagNames = [...]string {
    "DONT_INLINE",
    "SYNTHETIC",
    "RETURN",
    "LOOP_START",
    "LOOP_END",
    "EXC_HANDLER_REGION",
    "FINALLY_HANDLER",
    "REMOVED",
}

func (self Flag) String() string {
    var buf []string
    for i, name := range _FlagNames {
        if self & (1 << i) != 0 {
            buf = append(buf, name)
        }
    }
    return strings.Join(buf, "|")
}

type Type uint8

const (
    CatchBlock Type = iota
    ExcHandler
    Loop
    _N_types
)

func (self Type) String() string {
    switch self {
        case CatchBlock : return "CATCH_BLOCK"
        case ExcHandler : return "EXC_HANDLER"
        case Loop       : return "LOOP"
        default         : return "UNKNOWN"
    }
}

// Attr is a typed attribute value. Only Loop attributes may repeat on one node.
type Attr interface {
    AttrType() Type
}

type Node struct {
    flags Flag
    attrs [_N_types][]Attr
}

// Attrs returns the node itself, so that anything embedding a Node exposes
// its attributes through one accessor.
func (self *Node) Attrs() *Node {
    return self
}

func (self *Node) Add(f Flag) {
    self.flags |= f
}

func (self *Node) Remove(f Flag) {
    self.flags &^= f
}

func (self *Node) Has(f Flag) bool {
    return self.flags & f != 0
}

func (self *Node) Flags() Flag {
    return self.flags
}

func (self *Node) AddAttr(a Attr) {
    if t := a.AttrType(); t == Loop {
        self.attrs[t] = append(self.attrs[t], a)
    } else {
        self.attrs[t] = []Attr { a }
    }
}

func (self *Node) Get(t Type) Attr {
    if v := self.attrs[t]; len(v) == 0 {
        return nil
    } else {
        return v[0]
    }
}

func (self *Node) GetAll(t Type) []Attr {
    return self.attrs[t]
}

func (self *Node) Contains(t Type) bool {
    return len(self.attrs[t]) != 0
}

func (self *Node) RemoveAttr(t Type) {
    self.attrs[t] = nil
}
