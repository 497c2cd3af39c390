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

package regions

import (
    `github.com/cloudwego/regions/internal/utils`
    `github.com/pkg/errors`
)

// AnalysisError occures when a method cannot be structured. The method is
// left to the fallback output and every other method is unaffected.
type AnalysisError = utils.AnalysisError

type ErrorKind = utils.ErrorKind

const (
    // MalformedControlFlow means the input graph or exception table is inconsistent.
    MalformedControlFlow = utils.MalformedControlFlow

    // InvariantViolation means an internal structural invariant did not hold.
    InvariantViolation = utils.InvariantViolation
)

func kindOf(err error) ErrorKind {
    if e, ok := errors.Cause(err).(*AnalysisError); ok {
        return e.Kind
    } else {
        return 0
    }
}

// IsMalformed reports whether err was caused by malformed control flow.
func IsMalformed(err error) bool {
    return err != nil && kindOf(err) == MalformedControlFlow
}

// IsInvariant reports whether err was caused by a violated invariant.
func IsInvariant(err error) bool {
    return err != nil && kindOf(err) == InvariantViolation
}
