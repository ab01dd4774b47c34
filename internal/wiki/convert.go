/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package wiki

import "storywiki/internal/story"

// Convert parses a whole script and renders it. The first invalid line
// aborts the conversion.
func Convert(text string, opts Options) (*Document, error) {
	cmds, err := story.ParseScript(text, opts.Notation, opts.SkipBlankLines)
	if err != nil {
		return nil, err
	}
	return Render(cmds, opts)
}
