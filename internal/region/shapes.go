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

package region

import (
    `fmt`

    `github.com/cloudwego/regions/internal/attr`
    `github.com/cloudwego/regions/internal/cfg`
    `github.com/cloudwego/regions/internal/cond`
    `github.com/cloudwego/regions/internal/trycatch`
)

func nameOf(c Container) string {
    if c == nil {
        return "-"
    } else {
        return c.String()
    }
}

/** If **/

// If is a two-way conditional. Header holds the branch instruction the
// condition was built from; headers of conditions merged into this one
// during compound condition recovery are kept after it.
type If struct {
    _Base
    Header *cfg.Block
    Cond   *cond.Condition
    Then   Container
    Else   Container
    extra  []*cfg.Block
}

// NewIf creates the region of a block ending in a two-way branch. The block
// must hold the branch and nothing else.
func NewIf(parent Region, header *cfg.Block) (*If, error) {
    if c, err := cond.FromBranch(header); err != nil {
        return nil, err
    } else {
        return &If { _Base: _Base { parent: parent }, Header: header, Cond: c }, nil
    }
}

// Headers returns the branch blocks the condition was built from.
func (self *If) Headers() []*cfg.Block {
    return append([]*cfg.Block { self.Header }, self.extra...)
}

func (self *If) SetThen(c Container) {
    adopt(self, c)
    self.Then = c
}

func (self *If) SetElse(c Container) {
    adopt(self, c)
    self.Else = c
}

// Invert negates the condition and swaps the branches.
func (self *If) Invert() {
    self.Cond, self.Then, self.Else = cond.Invert(self.Cond), self.Else, self.Then
}

// SimplifyCondition reports whether simplification changed the condition.
func (self *If) SimplifyCondition() bool {
    if c := cond.Simplify(self.Cond); c == self.Cond {
        return false
    } else {
        self.Cond = c
        return true
    }
}

// absorb folds a nested if without else into this one, moving its condition
// into an And chain with ours.
func (self *If) absorb(inner *If) {
    self.Cond = cond.Merge(cond.And, self.Cond, inner.Cond)
    self.extra = append(self.extra, inner.Headers()...)
    self.SetThen(inner.Then)
    inner.Cond = nil
}

// either folds a following if with the same jump into this one, moving its
// condition into an Or chain with ours. The jump of next is dropped.
func (self *If) either(next *If) {
    self.Cond = cond.Merge(cond.Or, self.Cond, next.Cond)
    self.extra = append(self.extra, next.Headers()...)
    next.Cond = nil
}

// chain appends the branch of another header to the condition. The branch
// is negated when taking it leads away from the current then target.
func (self *If) chain(mode cond.Mode, bb *cfg.Block, negate bool) error {
    c, err := cond.FromBranch(bb)
    if err != nil {
        return err
    }

    /* the new header goes after the others */
    if negate {
        c = cond.Invert(c)
    }
    self.Cond = cond.Merge(mode, self.Cond, c)
    self.extra = append(self.extra, bb)
    return nil
}

func (self *If) SubBlocks() []Container {
    ret := make([]Container, 0, len(self.extra) + 3)
    ret = append(ret, self.Header)

    /* merged headers */
    for _, bb := range self.extra {
        ret = append(ret, bb)
    }

    /* branches, when present */
    if self.Then != nil { ret = append(ret, self.Then) }
    if self.Else != nil { ret = append(ret, self.Else) }
    return ret
}

// ReplaceSubBlock only replaces branches; headers are fixed.
func (self *If) ReplaceSubBlock(old Container, rep Container) bool {
    switch {
        case old == nil        : return false
        case self.Then == old  : self.SetThen(rep); return true
        case self.Else == old  : self.SetElse(rep); return true
        default                : return false
    }
}

func (self *If) String() string {
    return fmt.Sprintf("if(%s, %s, %s)", self.Cond, nameOf(self.Then), nameOf(self.Else))
}

/** Loop **/

// Loop is a loop region. A pre-condition loop tests Cond in Header before
// every iteration; an endless loop has neither and leaves through breaks.
type Loop struct {
    _Base
    Info   *cfg.LoopInfo
    Header *cfg.Block
    Cond   *cond.Condition
    Body   Container
}

func NewLoop(parent Region, info *cfg.LoopInfo) *Loop {
    return &Loop { _Base: _Base { parent: parent }, Info: info }
}

func (self *Loop) IsEndless() bool {
    return self.Cond == nil
}

func (self *Loop) SetBody(c Container) {
    adopt(self, c)
    self.Body = c
}

func (self *Loop) SubBlocks() []Container {
    var ret []Container
    if self.Header != nil { ret = append(ret, self.Header) }
    if self.Body   != nil { ret = append(ret, self.Body) }
    return ret
}

func (self *Loop) ReplaceSubBlock(old Container, rep Container) bool {
    if old == nil || self.Body != old {
        return false
    } else {
        self.SetBody(rep)
        return true
    }
}

func (self *Loop) String() string {
    if self.Cond == nil {
        return fmt.Sprintf("loop(%s)", nameOf(self.Body))
    } else {
        return fmt.Sprintf("while(%s, %s)", self.Cond, nameOf(self.Body))
    }
}

/** Switch **/

type Case struct {
    Keys []int64
    Body Container
}

type Switch struct {
    _Base
    Header  *cfg.Block
    Cases   []*Case
    Default Container
}

func NewSwitch(parent Region, header *cfg.Block) *Switch {
    return &Switch { _Base: _Base { parent: parent }, Header: header }
}

// AddCase appends a case. A nil body is a case that leaves the switch at once.
func (self *Switch) AddCase(keys []int64, body Container) {
    adopt(self, body)
    self.Cases = append(self.Cases, &Case { Keys: keys, Body: body })
}

func (self *Switch) SetDefault(c Container) {
    adopt(self, c)
    self.Default = c
}

func (self *Switch) SubBlocks() []Container {
    ret := []Container { self.Header }
    for _, v := range self.Cases {
        if v.Body != nil {
            ret = append(ret, v.Body)
        }
    }

    /* default case comes last */
    if self.Default != nil {
        ret = append(ret, self.Default)
    }
    return ret
}

func (self *Switch) ReplaceSubBlock(old Container, rep Container) bool {
    if old == nil {
        return false
    }

    /* case bodies */
    for _, v := range self.Cases {
        if v.Body == old {
            adopt(self, rep)
            v.Body = rep
            return true
        }
    }

    /* default case */
    if self.Default == old {
        self.SetDefault(rep)
        return true
    } else {
        return false
    }
}

func (self *Switch) String() string {
    return fmt.Sprintf("switch(%s, %d cases)", self.Header, len(self.Cases))
}

/** TryCatch **/

// TryCatch wraps the code guarded by one try-block. The region carries the
// try-block's scope tag; its handler regions live in the Tree side table.
type TryCatch struct {
    _Base
    TryBlock *trycatch.TryBlock
    Try      Container
}

func NewTryCatch(parent Region, tb *trycatch.TryBlock) *TryCatch {
    ret := &TryCatch { _Base: _Base { parent: parent }, TryBlock: tb }
    ret.AddAttr(tb.Tag())
    return ret
}

func (self *TryCatch) SetTry(c Container) {
    adopt(self, c)
    self.Try = c
}

func (self *TryCatch) SubBlocks() []Container {
    if self.Try == nil {
        return nil
    } else {
        return []Container { self.Try }
    }
}

func (self *TryCatch) ReplaceSubBlock(old Container, rep Container) bool {
    if old == nil || self.Try != old {
        return false
    } else {
        self.SetTry(rep)
        return true
    }
}

func (self *TryCatch) String() string {
    return fmt.Sprintf("try(%s, %s)", self.TryBlock, nameOf(self.Try))
}

// isHandlerRegion reports whether r is the body of an exception handler.
func isHandlerRegion(r Region) bool {
    return r.Attrs().Contains(attr.ExcHandler)
}
