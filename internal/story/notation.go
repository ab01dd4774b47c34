/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package story

import (
	"fmt"
	"strings"
)

// Notation selects the dialect of the script format.
//
// The classic notation knows the base tags only. The extended notation also
// types the audio, camera and timing tags introduced by later script
// revisions; in the classic notation those fall through to Other.
type Notation int

const (
	NotationClassic Notation = iota
	NotationExtended
)

func (n Notation) String() string {
	switch n {
	case NotationExtended:
		return "extended"
	default:
		return "classic"
	}
}

// ParseNotation maps a config or flag value to a Notation.
func ParseNotation(s string) (Notation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "classic":
		return NotationClassic, nil
	case "extended":
		return NotationExtended, nil
	}
	return NotationClassic, fmt.Errorf("unknown notation %q (want classic or extended)", s)
}

// extendedTags are typed only in the extended notation.
var extendedTags = map[string]bool{
	TagCharSlot:    true,
	TagPlayMusic:   true,
	TagHeader:      true,
	TagPlaySound:   true,
	TagStopSound:   true,
	TagCameraShake: true,
	TagBgEffect:    true,
	TagImageTween:  true,
	TagDelay:       true,
	TagStopMusic:   true,
	TagDialog:      true,
}

func (n Notation) knows(tag string) bool {
	return n == NotationExtended || !extendedTags[tag]
}
