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

package cfg

import (
    `fmt`
    `strings`

    `github.com/cloudwego/regions/internal/attr`
    `gonum.org/v1/gonum/graph`
    `gonum.org/v1/gonum/graph/encoding`
    `gonum.org/v1/gonum/graph/encoding/dot`
    `gonum.org/v1/gonum/graph/multi`
)

type _DotNode struct {
    bb *Block
}

func (self _DotNode) ID() int64 {
    return int64(self.bb.Id)
}

func (self _DotNode) DOTID() string {
    return fmt.Sprintf("bb_%d", self.bb.Id)
}

func (self _DotNode) Attributes() []encoding.Attribute {
    var buf []string
    buf = append(buf, self.bb.String())

    /* instruction listing */
    for _, p := range self.bb.Insns {
        buf = append(buf, p.String())
    }

    /* node shape */
    ret := []encoding.Attribute {
        { Key: "shape", Value: "box" },
        { Key: "label", Value: strings.Join(buf, "\\l") + "\\l" },
    }

    /* highlight the handler entries */
    if self.bb.Contains(attr.ExcHandler) {
        ret = append(ret, encoding.Attribute { Key: "color", Value: "red" })
    }
    return ret
}

type _DotLine struct {
    f   _DotNode
    t   _DotNode
    uid int64
}

func (self _DotLine) From() graph.Node         { return self.f }
func (self _DotLine) To() graph.Node           { return self.t }
func (self _DotLine) ID() int64                { return self.uid }
func (self _DotLine) ReversedLine() graph.Line { return _DotLine { f: self.t, t: self.f, uid: self.uid } }

func (self _DotLine) Attributes() []encoding.Attribute {
    if isHandlerEdge(self.t.bb) {
        return []encoding.Attribute {{ Key: "style", Value: "dashed" }}
    } else {
        return nil
    }
}

// DOT renders the graph in Graphviz format. Handler entries are drawn in red
// and exception edges dashed.
func (self *Graph) DOT(name string) ([]byte, error) {
    uid := int64(0)
    g := multi.NewDirectedGraph()

    /* add all the blocks */
    for _, bb := range self.Blocks {
        g.AddNode(_DotNode { bb })
    }

    /* add all the edges, duplicates included */
    for _, bb := range self.Blocks {
        for _, p := range bb.succ {
            g.SetLine(_DotLine { f: _DotNode { bb }, t: _DotNode { p }, uid: uid })
            uid++
        }
    }

    /* marshal the graph */
    return dot.MarshalMulti(g, name, "", "  ")
}
