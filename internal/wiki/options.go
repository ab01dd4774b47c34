/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package wiki

import "storywiki/internal/story"

// DefaultDecisionSpeaker voices the player's choices.
const DefaultDecisionSpeaker = "Doctor"

// Options selects the notation and the rendering policies that differ between
// script revisions.
type Options struct {
	Notation story.Notation

	// DecisionSpeaker is credited with resolved decision options.
	// Empty means DefaultDecisionSpeaker.
	DecisionSpeaker string
	// RegisterDecisionSpeaker lists DecisionSpeaker among the characters as
	// soon as a decision is met.
	RegisterDecisionSpeaker bool
	// TrimDialogue trims surrounding whitespace from dialogue text.
	TrimDialogue bool
	// StripEscapedNewlines deletes literal `\n` sequences from narration.
	StripEscapedNewlines bool
	// SkipBlankLines ignores blank lines instead of failing on them.
	SkipBlankLines bool
}

// DefaultOptions returns the policies used for scripts in notation n.
// Both notations trim dialogue; only the classic notation deletes escaped
// newlines from narration.
func DefaultOptions(n story.Notation) Options {
	return Options{
		Notation:                n,
		DecisionSpeaker:         DefaultDecisionSpeaker,
		RegisterDecisionSpeaker: true,
		TrimDialogue:            true,
		StripEscapedNewlines:    n == story.NotationClassic,
	}
}

func (o Options) speaker() string {
	if o.DecisionSpeaker == "" {
		return DefaultDecisionSpeaker
	}
	return o.DecisionSpeaker
}
