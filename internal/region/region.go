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

// Package region holds the structured form of a method: a tree of regions
// whose leaves are the blocks of the block graph. Handler bodies hang off the
// try that guards them through a side table, which turns the tree into a DAG
// when one handler serves several tries.
package region

import (
    `fmt`
    `strings`

    `github.com/cloudwego/regions/internal/attr`
    `github.com/cloudwego/regions/internal/cfg`
    `github.com/cloudwego/regions/internal/utils`
)

// Container is either a *cfg.Block or a Region.
type Container interface {
    Attrs() *attr.Node
    String() string
}

type Region interface {
    Container
    Parent() Region
    SetParent(p Region)
    SubBlocks() []Container
    ReplaceSubBlock(old Container, rep Container) bool
}

// dispatch splits a container into its variant. Anything that is neither a
// block nor a region is malformed input to the structurer.
func dispatch(c Container) (*cfg.Block, Region) {
    switch v := c.(type) {
        case *cfg.Block : return v, nil
        case Region     : return nil, v
        default         : utils.Raise(utils.EUnknownContainer(c)); return nil, nil
    }
}

type _Base struct {
    attr.Node
    parent Region
}

func (self *_Base) Parent() Region {
    return self.parent
}

func (self *_Base) SetParent(p Region) {
    self.parent = p
}

func adopt(p Region, c Container) {
    if r, ok := c.(Region); ok {
        r.SetParent(p)
    }
}

func replaceIn(list []Container, old Container, rep Container) bool {
    for i, v := range list {
        if v == old {
            list[i] = rep
            return true
        }
    }
    return false
}

func joinSubs(name string, subs []Container) string {
    buf := make([]string, 0, len(subs))
    for _, v := range subs {
        buf = append(buf, v.String())
    }
    return fmt.Sprintf("%s(%s)", name, strings.Join(buf, ", "))
}

/** Sequence **/

type Sequence struct {
    _Base
    blocks []Container
}

func NewSequence(parent Region) *Sequence {
    return &Sequence { _Base: _Base { parent: parent } }
}

// Append adds c at the end of the sequence and makes the sequence its parent.
func (self *Sequence) Append(c Container) {
    adopt(self, c)
    self.blocks = append(self.blocks, c)
}

func (self *Sequence) SubBlocks() []Container {
    return self.blocks
}

func (self *Sequence) ReplaceSubBlock(old Container, rep Container) bool {
    if !replaceIn(self.blocks, old, rep) {
        return false
    } else {
        adopt(self, rep)
        return true
    }
}

func (self *Sequence) String() string {
    return joinSubs("seq", self.blocks)
}

/** Synthetic **/

// Synthetic is structuring scaffolding: a sequence that does not correspond
// to a source construct of its own, such as the body of a handler.
type Synthetic struct {
    Sequence
}

func NewSynthetic(parent Region) *Synthetic {
    ret := new(Synthetic)
    ret.parent = parent
    ret.Node.Add(attr.Synthetic)
    return ret
}

func (self *Synthetic) Append(c Container) {
    adopt(self, c)
    self.blocks = append(self.blocks, c)
}

func (self *Synthetic) ReplaceSubBlock(old Container, rep Container) bool {
    if !replaceIn(self.blocks, old, rep) {
        return false
    } else {
        adopt(self, rep)
        return true
    }
}

func (self *Synthetic) String() string {
    return joinSubs("synthetic", self.blocks)
}
