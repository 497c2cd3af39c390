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

// Package regions recovers structured control flow from decoded bytecode
// methods: a block graph with dominance and loops, an exception model of
// try-blocks and handlers, and a region tree of sequences, ifs, loops,
// switches and try-catch constructs.
package regions

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/cloudwego/regions/internal/cfg"
	"github.com/cloudwego/regions/internal/ir"
	"github.com/cloudwego/regions/internal/opts"
	"github.com/cloudwego/regions/internal/region"
	"github.com/cloudwego/regions/internal/trycatch"
	"github.com/cloudwego/regions/internal/utils"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

type (
	Insn       = ir.Insn
	RawBlock   = cfg.Raw
	CatchEntry = trycatch.Entry
	Graph      = cfg.Graph
	Tree       = region.Tree
)

// Method is one decoded method. The first block is the entry, successor
// offsets are in branch order and exclude exception edges, which are derived
// from the exception table.
//
// Analysis tags the instructions in place, so a Method is analyzed once.
type Method struct {
	Name    string
	Blocks  []RawBlock
	Catches []CatchEntry
}

// Result is the outcome of one method. When Fallback is set Err tells why,
// and Graph holds whatever was built before the failure.
type Result struct {
	Method   *Method
	Graph    *Graph
	Tree     *Tree
	Err      error
	Fallback bool
}

const (
	_PhaseAttach     = "attach"
	_PhaseBuild      = "build"
	_PhaseExceptions = "exceptions"
	_PhaseStructure  = "structure"
	_PhaseNormalize  = "normalize"
	_PhaseValidate   = "validate"
)

var logger = log.New("module", "regions")

// Analyze runs the whole pipeline over one method.
func Analyze(m *Method, options ...Option) *Result {
	return analyze(m, makeOptions(options))
}

// AnalyzeAll analyzes every method concurrently. Methods share nothing, so a
// failing method never affects the others. Results are in input order.
func AnalyzeAll(methods []*Method, options ...Option) []*Result {
	wg := sync.WaitGroup{}
	opt := makeOptions(options)
	ret := make([]*Result, len(methods))
	pool := gopool.NewPool("regions", int32(opt.MaxWorkers), gopool.NewConfig())

	/* one task per method */
	for i, m := range methods {
		i, m := i, m
		wg.Add(1)
		pool.Go(func() {
			defer wg.Done()
			defer crashed(&ret[i], m, opt)
			ret[i] = analyze(m, opt)
		})
	}

	/* wait for all the tasks */
	wg.Wait()
	return ret
}

// crashed turns a panic that escaped one method into a fallback result.
func crashed(rp **Result, m *Method, opt opts.Options) {
	if v := recover(); v != nil {
		err := errors.Errorf("regions: panic while analyzing %s: %v", m.Name, v)
		opt.Logger.Error("method crashed", "method", m.Name, "err", err)
		*rp = &Result{Method: m, Err: err, Fallback: true}
	}
}

type _Analyzer struct {
	m   *Method
	opt opts.Options
	ret *Result
}

func analyze(m *Method, opt opts.Options) *Result {
	a := &_Analyzer{m: m, opt: opt, ret: &Result{Method: m}}
	phase, err := a.run()

	/* analysis succeeded */
	if err == nil {
		a.succeeded()
	} else {
		a.failed(phase, err)
	}
	return a.ret
}

func (self *_Analyzer) run() (phase string, err error) {
	var g *cfg.Graph
	var tr *region.Tree
	var mm *trycatch.Model
	defer utils.Recover(&err)

	/* exception table */
	phase = _PhaseAttach
	if mm, err = trycatch.Attach(self.insns(), self.m.Catches); err != nil {
		return
	}

	/* block graph with exception edges */
	phase = _PhaseBuild
	if g, err = cfg.Build(self.raw()); err != nil {
		return
	}

	/* dominance and loops */
	self.ret.Graph = g
	g.ComputeDominators()
	g.MarkLoops()

	/* exception model */
	phase = _PhaseExceptions
	if err = trycatch.Process(g, mm); err != nil {
		return
	}

	/* the graph is final from here on */
	g.UpdateCleanSuccessors()
	g.Lock()

	/* region tree */
	phase = _PhaseStructure
	if tr, err = region.Make(g, mm); err != nil {
		return
	}

	/* optional normalization */
	if self.opt.Normalize {
		phase = _PhaseNormalize
		region.Normalize(tr)
	}

	/* final checks */
	phase = _PhaseValidate
	if err = region.Validate(tr); err == nil {
		self.ret.Tree = tr
	}
	return
}

func (self *_Analyzer) insns() []*ir.Insn {
	var ret []*ir.Insn
	for _, rb := range self.m.Blocks {
		ret = append(ret, rb.Insns...)
	}
	return ret
}

// raw appends the exception edges of every block after its own successors.
func (self *_Analyzer) raw() []cfg.Raw {
	ret := make([]cfg.Raw, 0, len(self.m.Blocks))
	for _, rb := range self.m.Blocks {
		rb.Succ = append(append([]int(nil), rb.Succ...), trycatch.ExceptionSuccessors(rb.Insns)...)
		ret = append(ret, rb)
	}
	return ret
}

func (self *_Analyzer) succeeded() {
	nr := 0
	self.ret.Tree.Regions(func(region.Region) { nr++ })
	self.opt.Logger.Debug("method structured", "method", self.m.Name, "blocks", len(self.ret.Graph.Blocks), "regions", nr)
}

func (self *_Analyzer) failed(phase string, err error) {
	kind := "Unknown"
	where := ""

	/* stamp the classified error */
	if e, ok := err.(*utils.AnalysisError); ok {
		e.Method = self.m.Name
		e.Phase = phase
		kind, where = e.Kind.String(), e.Where
	}

	/* the method falls back */
	self.ret.Err = errors.WithStack(err)
	self.ret.Fallback = true
	self.opt.Logger.Warn("method abandoned", "method", self.m.Name, "phase", phase, "kind", kind, "where", where, "err", err)

	/* keep the graph for postmortem */
	if self.opt.CanDump() && self.ret.Graph != nil {
		if err = self.dump(); err != nil {
			self.opt.Logger.Error("cannot dump block graph", "method", self.m.Name, "err", err)
		}
	}
}

func (self *_Analyzer) dump() error {
	buf, err := self.ret.Graph.DOT(self.m.Name)
	if err != nil {
		return errors.Wrapf(err, "render %s", self.m.Name)
	}

	/* one file per method */
	fn := filepath.Join(self.opt.DumpDir, fileName(self.m.Name)+".dot")
	if err = os.WriteFile(fn, buf, 0644); err != nil {
		return errors.Wrapf(err, "write %s", fn)
	}
	return nil
}

func fileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, name)
}
