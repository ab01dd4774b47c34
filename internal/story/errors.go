/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package story

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by ParseError. Use errors.Is to test for them.
var (
	ErrEmptyLine       = errors.New("empty line")
	ErrMissingArgument = errors.New("missing required argument")
	ErrInvalidBool     = errors.New("invalid boolean")
	ErrOptionMismatch  = errors.New("decision values and options differ in length")
)

// ParseError reports a line that cannot be tokenized or typed.
// Line is 1-based and zero when the line number is unknown.
type ParseError struct {
	Line   int
	Tag    string
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Detail)
	}
	if e.Tag != "" {
		msg = e.Tag + ": " + msg
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }
