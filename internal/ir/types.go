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

type Kind uint8

const (
    K_unknown Kind = iota
    K_boolean
    K_byte
    K_char
    K_short
    K_int
    K_long
    K_float
    K_double
    K_object
)

var _KindNames = [...]string {
    K_unknown : "?",
    K_boolean : "boolean",
    K_byte    : "byte",
    K_char    : "char",
    K_short   : "short",
    K_int     : "int",
    K_long    : "long",
    K_float   : "float",
    K_double  : "double",
    K_object  : "object",
}

// Type is an operand type as resolved by type inference upstream.
type Type struct {
    K    Kind
    Name string
}

var (
    Unknown   = Type { K: K_unknown }
    Boolean   = Type { K: K_boolean }
    Int       = Type { K: K_int }
    Long      = Type { K: K_long }
    Float     = Type { K: K_float }
    Double    = Type { K: K_double }
    Throwable = Object("java.lang.Throwable")
)

func Object(name string) Type {
    return Type { K: K_object, Name: name }
}

func (self Type) IsObject() bool {
    return self.K == K_object
}

// TotalOrder reports whether "not (a < b)" and "a >= b" are interchangeable
// for values of this type.
func (self Type) TotalOrder() bool {
    return self.K >= K_boolean && self.K <= K_long
}

func (self Type) String() string {
    if self.K == K_object {
        return self.Name
    } else {
        return _KindNames[self.K]
    }
}
