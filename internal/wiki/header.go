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

// Background is a registered background image and its 1-based id.
type Background struct {
	Image string `json:"image"`
	ID    int    `json:"id"`
}

// Document is a converted story: the registries collected while rendering
// and the transcript body.
type Document struct {
	Characters  []string     `json:"characters"`
	Backgrounds []Background `json:"backgrounds"`
	Body        string       `json:"body"`
}

// Header returns the two-line preamble listing characters and backgrounds.
func (d *Document) Header() string {
	var b strings.Builder
	b.WriteString("|chars = ")
	for _, c := range d.Characters {
		b.WriteString("{{si|mode=char|" + c + "}}")
	}
	header := strings.TrimSpace(b.String())

	b.Reset()
	b.WriteString(header)
	b.WriteString("\n|bgs = ")
	for _, bg := range d.Backgrounds {
		b.WriteString("{{si|mode=bg|" + bg.Image + "|" + strconv.Itoa(bg.ID) + "}}")
	}
	return b.String()
}

// String renders the complete wiki text.
func (d *Document) String() string {
	return d.Header() + "\n\n\n" + strings.TrimSpace(d.Body)
}
