/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package wiki

import (
	"strconv"
	"strings"
)

// Markup fragments of the story template family ({{sc|...}} and {{si|...}}).
const (
	closeSpeaker   = "}}\n"
	closeNarration = "|mode=speech}}\n"
	closeSubtitle  = "|mode=subtitle}}\n"
	lineBreak      = "<br/>"

	markFade        = "{{sc|fades out and in|mode=background}}\n"
	markBranchStart = "{{sc|mode=branchstart}}\n"
	markBranch      = "{{sc|mode=branch}}\n"
	markBranchEnd   = "{{sc|mode=branchend}}\n"
	markFlashStart  = "{{sc|mode=flashbackstart}}\n"
	markFlashEnd    = "{{sc|mode=flashbackend}}\n"

	optionJoiner = " / "
)

func openSpeaker(name, text string) string { return "{{sc|" + name + "|" + text }

func openText(text string) string { return "{{sc|" + text }

func backgroundMark(id int) string { return "{{sc|" + strconv.Itoa(id) + "|mode=background}}\n" }

func imageMark(image string) string { return "{{sc|" + image + "|mode=image}}\n" }

func resolvedLine(speaker, text string) string { return "{{sc|" + speaker + "|" + text + "}}\n" }

// unitKind tags the structural markers that later commands may take back.
type unitKind int

const (
	unitText unitKind = iota
	unitFade
	unitBranchStart
)

type unit struct {
	kind unitKind
	text string
}

// output is the transcript under construction. It remembers what kind of
// unit was written last so a fade or branch start can be withdrawn.
type output struct {
	units []unit
}

func (o *output) write(s string) { o.emit(unitText, s) }

func (o *output) emit(kind unitKind, s string) {
	o.units = append(o.units, unit{kind: kind, text: s})
}

func (o *output) lastIs(kind unitKind) bool {
	return len(o.units) > 0 && o.units[len(o.units)-1].kind == kind
}

// dropLast removes the last unit if it is of the given kind.
func (o *output) dropLast(kind unitKind) bool {
	if !o.lastIs(kind) {
		return false
	}
	o.units = o.units[:len(o.units)-1]
	return true
}

func (o *output) String() string {
	var b strings.Builder
	for _, u := range o.units {
		b.WriteString(u.text)
	}
	return b.String()
}
