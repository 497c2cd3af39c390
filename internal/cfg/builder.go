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
    `sort`
    `sync/atomic`

    `github.com/cloudwego/regions/internal/attr`
    `github.com/cloudwego/regions/internal/ir`
    `github.com/cloudwego/regions/internal/utils`
    `github.com/oleiade/lane`
)

var (
    GraphCount uint64 = 0
    BlockCount uint64 = 0
)

// Raw is one pre-split block as handed over by the decoder. Succ holds the
// raw successor offsets in branch order, exception edges appended last.
type Raw struct {
    Offset    int
    Insns     []*ir.Insn
    Succ      []int
    Synthetic bool
}

// Build resolves raw successor offsets into block edges. The first raw block
// is the method entry. Blocks unreachable from the entry are dropped and the
// rest get dense ids in offset order.
func Build(raw []Raw) (ret *Graph, err error) {
    defer utils.Recover(&err)
    ret = build(raw)
    return
}

func build(raw []Raw) *Graph {
    if len(raw) == 0 {
        utils.Raise(utils.EMalformed(nil, "method has no blocks"))
    }

    /* index the raw blocks by offset */
    idx := make(map[int]int, len(raw))
    for i, rb := range raw {
        if _, ok := idx[rb.Offset]; ok {
            utils.Raise(utils.EMalformed(rb.Offset, "duplicated block offset"))
        } else {
            idx[rb.Offset] = i
        }
    }

    /* resolve every successor offset, reachable or not */
    succ := make([][]int, len(raw))
    for i, rb := range raw {
        for _, off := range rb.Succ {
            if j, ok := idx[off]; !ok {
                utils.Raise(utils.EMalformed(rb.Offset, "unknown successor offset %#04x", off))
            } else {
                succ[i] = append(succ[i], j)
            }
        }
    }

    /* reachability from the entry */
    q := lane.NewQueue()
    vis := make([]bool, len(raw))
    vis[0] = true
    q.Enqueue(0)

    /* breadth-first over the raw edges */
    for !q.Empty() {
        for _, j := range succ[q.Dequeue().(int)] {
            if !vis[j] {
                vis[j] = true
                q.Enqueue(j)
            }
        }
    }

    /* keep the reachable blocks in offset order, entry first */
    var live []int
    for i := range raw {
        if vis[i] {
            live = append(live, i)
        }
    }

    /* the entry keeps id 0 regardless of its offset */
    sort.SliceStable(live[1:], func(a int, b int) bool {
        return raw[live[a + 1]].Offset < raw[live[b + 1]].Offset
    })

    /* create the blocks */
    ret := new(Graph)
    ids := make(map[int]*Block, len(live))
    for id, i := range live {
        bb := newBlock(id, raw[i].Offset)
        bb.Insns = raw[i].Insns
        ids[i] = bb
        ret.Blocks = append(ret.Blocks, bb)

        /* block flags */
        if raw[i].Synthetic {
            bb.Node.Add(attr.Synthetic)
        }
        if p := bb.LastInsn(); p != nil && p.Op == ir.OP_return {
            bb.Node.Add(attr.Return)
        }
    }

    /* connect the edges in branch order */
    for _, i := range live {
        for _, j := range succ[i] {
            ret.Connect(ids[i], ids[j])
        }
    }

    /* the first block is the entry */
    ret.Entry = ret.Blocks[0]
    atomic.AddUint64(&GraphCount, 1)
    atomic.AddUint64(&BlockCount, uint64(len(ret.Blocks)))
    return ret
}
