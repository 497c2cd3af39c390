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
    `github.com/cloudwego/regions/internal/cfg`
    `github.com/cloudwego/regions/internal/ir`
)

// Handler is one catch clause. A handler declared by several exception table
// entries is shared, TryBlock being the try-block that declared it first.
type Handler struct {
    CatchType *ir.Type
    Offset    int
    Block     *cfg.Block
    Blocks    []*cfg.Block
    TryBlock  *TryBlock
    Arg       *ir.Reg
    Finally   bool
}

func (self *Handler) IsCatchAll() bool {
    return self.CatchType == nil
}

// ExceptionType is the static type of the caught value.
func (self *Handler) ExceptionType() ir.Type {
    if self.CatchType == nil {
        return ir.Throwable
    } else {
        return *self.CatchType
    }
}

func (self *Handler) String() string {
    if self.CatchType == nil {
        return fmt.Sprintf("handler(%04x: all)", self.Offset)
    } else {
        return fmt.Sprintf("handler(%04x: %s)", self.Offset, self.CatchType)
    }
}

// HandlerAttr tags the move-exception instruction, and later the block, where
// a handler starts.
type HandlerAttr struct {
    Handler *Handler
}

func (self *HandlerAttr) AttrType() attr.Type {
    return attr.ExcHandler
}

func (self *HandlerAttr) String() string {
    return "EXC_HANDLER: " + self.Handler.String()
}

// HandlerOf returns the handler starting at the node, if any.
func HandlerOf(n *attr.Node) *Handler {
    if v := n.Get(attr.ExcHandler); v == nil {
        return nil
    } else {
        return v.(*HandlerAttr).Handler
    }
}
