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

package utils

import (
    `fmt`
    `strings`
)

type ErrorKind uint8

const (
    MalformedControlFlow ErrorKind = iota + 1
    InvariantViolation
)

func (self ErrorKind) String() string {
    switch self {
        case MalformedControlFlow : return "MalformedControlFlow"
        case InvariantViolation   : return "InvariantViolation"
        default                   : return "UnknownError"
    }
}

// AnalysisError aborts the analysis of one method. Method and Phase are
// stamped by the driver when the error leaves the method.
type AnalysisError struct {
    Kind   ErrorKind
    Method string
    Phase  string
    Where  string
    Reason string
}

func (self *AnalysisError) Error() string {
    var buf []string
    if self.Method != "" { buf = append(buf, "method " + self.Method) }
    if self.Phase  != "" { buf = append(buf, "phase " + self.Phase) }
    if self.Where  != "" { buf = append(buf, "at " + self.Where) }

    /* no context available */
    if len(buf) == 0 {
        return fmt.Sprintf("%s: %s", self.Kind, self.Reason)
    } else {
        return fmt.Sprintf("%s(%s): %s", self.Kind, strings.Join(buf, ", "), self.Reason)
    }
}

func where(v interface{}) string {
    if v == nil {
        return ""
    } else {
        return fmt.Sprint(v)
    }
}

func EMalformed(at interface{}, format string, args ...interface{}) *AnalysisError {
    return &AnalysisError {
        Kind   : MalformedControlFlow,
        Where  : where(at),
        Reason : fmt.Sprintf(format, args...),
    }
}

func EInvariant(at interface{}, format string, args ...interface{}) *AnalysisError {
    return &AnalysisError {
        Kind   : InvariantViolation,
        Where  : where(at),
        Reason : fmt.Sprintf(format, args...),
    }
}

func EUnknownContainer(c interface{}) *AnalysisError {
    return EMalformed(nil, "unknown container type: %T", c)
}

// Raise aborts a deep recursive query with a classified error. The driver
// turns it back into an ordinary error with Recover.
func Raise(err *AnalysisError) {
    panic(err)
}

// Recover stores a raised *AnalysisError into errp. Any other panic is a bug
// and keeps propagating.
func Recover(errp *error) {
    if v := recover(); v != nil {
        if e, ok := v.(*AnalysisError); ok {
            *errp = e
        } else {
            panic(v)
        }
    }
}
