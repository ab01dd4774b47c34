/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package story

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// lower folds tag names and argument keys. Casers keep state, so each call
// gets its own.
func lower(s string) string { return cases.Lower(language.Und).String(s) }

// TagNarration is the tag given to lines without a bracketed header.
const TagNarration = "narration"

// Tag is a tokenized line: a lower-cased tag name, the raw header arguments and
// the free text following the header.
type Tag struct {
	Name    string
	Args    map[string]string
	Content string
}

type scanState int

const (
	stateType scanState = iota
	stateArgName
	stateArgValue
	stateContent
)

type scanner struct {
	state  scanState
	quoted bool
	name   strings.Builder
	key    strings.Builder
	value  strings.Builder
	body   strings.Builder
	args   map[string]string
}

// Tokenize splits a single script line into a Tag.
//
// A line that does not start with '[' is narration and its whole text is
// content. Otherwise the letters after '[' form the tag name and the header
// arguments follow as comma separated key=value pairs up to an unquoted ']'.
// A header that begins directly with name=... is a dialogue line.
func Tokenize(line string) (Tag, error) {
	first, size := utf8.DecodeRuneInString(line)
	if size == 0 {
		return Tag{}, &ParseError{Err: ErrEmptyLine}
	}
	if first != '[' {
		return Tag{Name: TagNarration, Args: map[string]string{}, Content: line}, nil
	}

	sc := scanner{state: stateType, args: map[string]string{}}
	for _, r := range line[size:] {
		sc.step(r)
	}
	return Tag{
		Name:    lower(sc.name.String()),
		Args:    sc.args,
		Content: sc.body.String(),
	}, nil
}

func (sc *scanner) step(r rune) {
	switch sc.state {
	case stateContent:
		sc.body.WriteRune(r)
	case stateType:
		if unicode.IsLetter(r) {
			sc.name.WriteRune(r)
			return
		}
		// The terminating rune is consumed.
		sc.state = stateArgName
		if sc.name.String() == "name" {
			sc.name.Reset()
			sc.name.WriteString(TagLine)
			sc.key.WriteString("name")
			sc.state = stateArgValue
		}
	default:
		sc.stepArg(r)
	}
}

func (sc *scanner) stepArg(r rune) {
	if r == '"' {
		sc.quoted = !sc.quoted
		return
	}
	if !sc.quoted {
		switch r {
		case ' ', ')':
			return
		case ',', ']':
			sc.flush()
			if r == ']' {
				sc.state = stateContent
			}
			return
		}
	}
	switch {
	case sc.state == stateArgValue:
		sc.value.WriteRune(r)
	case r == '=':
		sc.state = stateArgValue
	default:
		sc.key.WriteRune(r)
	}
}

// flush stores the pending pair under its lower-cased key, so xFrom and
// xfrom name the same argument and a later spelling overwrites an earlier
// one. A pair with neither key nor value (as produced by "[tag()]") is
// dropped.
func (sc *scanner) flush() {
	if sc.key.Len() > 0 || sc.value.Len() > 0 || sc.state == stateArgValue {
		sc.args[lower(sc.key.String())] = sc.value.String()
	}
	sc.key.Reset()
	sc.value.Reset()
	sc.state = stateArgName
}

// Encode renders a Tag back into script notation. Keys are written in sorted
// order and values are always quoted, so Tokenize(Encode(t)) reproduces t for
// any tag whose keys are lower-case and whose keys and values contain no
// double quotes.
func Encode(t Tag) string {
	if t.Name == TagNarration && len(t.Args) == 0 && t.Content != "" && !strings.HasPrefix(t.Content, "[") {
		return t.Content
	}
	keys := make([]string, 0, len(t.Args))
	for k := range t.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(t.Name)
	b.WriteByte('(')
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(t.Args[k])
		b.WriteByte('"')
	}
	b.WriteString(")]")
	b.WriteString(t.Content)
	return b.String()
}
