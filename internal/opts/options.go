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

package opts

import (
	"github.com/ethereum/go-ethereum/log"
)

type Options struct {
	MaxWorkers int
	DumpDir    string
	Normalize  bool
	Logger     log.Logger
}

// CanDump reports whether abandoned methods get their block graph dumped.
func (self *Options) CanDump() bool {
	return self.DumpDir != ""
}

func GetDefaultOptions() Options {
	return Options{
		MaxWorkers: MaxWorkers,
		DumpDir:    DumpDir,
		Normalize:  true,
	}
}
