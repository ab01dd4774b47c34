/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package wiki

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"storywiki/internal/story"
)

// ErrNoBackground is returned when a background command omits its image
// before any background has been shown.
var ErrNoBackground = errors.New("background without image and no previous background")

// RenderError reports a command the renderer cannot place in the transcript.
type RenderError struct {
	Line int
	Tag  string
	Err  error
}

func (e *RenderError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Tag, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Tag, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// blockKind names the text block currently left open in the output.
type blockKind int

const (
	blockNone blockKind = iota
	blockSpeaker
	blockNarration
	blockSubtitle
)

// openBlock holds at most one open block; speaker is set for blockSpeaker.
type openBlock struct {
	kind    blockKind
	speaker string
}

// renderer is the state of a single conversion.
type renderer struct {
	opts Options
	out  output
	open openBlock

	lastBackground string
	hasBackground  bool
	backgrounds    []Background
	backgroundIDs  map[string]int
	characters     []string
	characterSet   map[string]bool

	pending     []story.Option
	optionCount int
}

func newRenderer(opts Options) *renderer {
	return &renderer{
		opts:          opts,
		backgrounds:   []Background{},
		backgroundIDs: map[string]int{},
		characters:    []string{},
		characterSet:  map[string]bool{},
	}
}

// Render turns commands into a Document.
func Render(cmds []story.Command, opts Options) (*Document, error) {
	r := newRenderer(opts)
	for _, cmd := range cmds {
		if err := r.apply(cmd); err != nil {
			return nil, err
		}
	}
	r.closeBlock(blockNone)
	return &Document{
		Characters:  r.characters,
		Backgrounds: r.backgrounds,
		Body:        r.out.String(),
	}, nil
}

// closeBlock closes the open block unless it is of kind keep.
func (r *renderer) closeBlock(keep blockKind) {
	if r.open.kind == blockNone || r.open.kind == keep {
		return
	}
	switch r.open.kind {
	case blockSpeaker:
		r.out.write(closeSpeaker)
	case blockNarration:
		r.out.write(closeNarration)
	case blockSubtitle:
		r.out.write(closeSubtitle)
	}
	r.open = openBlock{}
}

func (r *renderer) apply(cmd story.Command) error {
	switch c := cmd.(type) {
	case story.Background:
		return r.background(c)
	case story.Line:
		r.dialogue(c.Name, c.Text)
	case story.Multiline:
		r.dialogue(c.Name, c.Text)
	case story.Narration:
		r.narration(c.Text)
	case story.Sticker:
		if c.Text != nil {
			r.narration(*c.Text)
		}
	case story.Subtitle:
		if c.Text != nil {
			r.subtitle(*c.Text)
		}
	case story.Decision:
		r.decision(c.Options)
	case story.Predicate:
		r.predicate(c.References)
	case story.Blocker:
		if c.A != nil && *c.A == 1 {
			r.closeBlock(blockNone)
			r.out.emit(unitFade, markFade)
		}
	case story.Image:
		if c.Image != nil {
			r.closeBlock(blockNone)
			r.out.write(imageMark(*c.Image))
		}
	case story.CameraEffect:
		if c.Effect != nil && *c.Effect == "grayscale" {
			r.closeBlock(blockNone)
			if c.Amount == 0 {
				r.out.write(markFlashEnd)
			} else {
				r.out.write(markFlashStart)
			}
		}
	}
	return nil
}

func (r *renderer) background(c story.Background) error {
	image := r.lastBackground
	if c.Image != nil {
		image = *c.Image
	} else if !r.hasBackground {
		return &RenderError{Line: c.SourceLine(), Tag: c.Tag(), Err: ErrNoBackground}
	}
	r.closeBlock(blockNone)
	id, ok := r.backgroundIDs[image]
	if !ok {
		id = len(r.backgrounds) + 1
		r.backgroundIDs[image] = id
		r.backgrounds = append(r.backgrounds, Background{Image: image, ID: id})
	}
	// A background change replaces a fade emitted right before it.
	r.out.dropLast(unitFade)
	r.out.write(backgroundMark(id))
	r.lastBackground = image
	r.hasBackground = true
	return nil
}

func (r *renderer) addCharacter(name string) {
	if r.characterSet[name] {
		return
	}
	r.characterSet[name] = true
	r.characters = append(r.characters, name)
}

func (r *renderer) dialogue(name, text string) {
	r.addCharacter(name)
	if r.opts.TrimDialogue {
		text = strings.TrimSpace(text)
	}
	r.closeBlock(blockSpeaker)
	switch {
	case r.open.kind == blockSpeaker && r.open.speaker == name:
		r.out.write(lineBreak + text)
	case r.open.kind == blockSpeaker:
		r.out.write(closeSpeaker + openSpeaker(name, text))
	default:
		r.out.write(openSpeaker(name, text))
	}
	r.open = openBlock{kind: blockSpeaker, speaker: name}
}

func (r *renderer) narration(text string) {
	r.closeBlock(blockNarration)
	text = strings.TrimSpace(text)
	if r.opts.StripEscapedNewlines {
		text = strings.ReplaceAll(text, `\n`, "")
	}
	r.continueBlock(blockNarration, text)
}

func (r *renderer) subtitle(text string) {
	r.closeBlock(blockSubtitle)
	r.continueBlock(blockSubtitle, strings.TrimSpace(text))
}

// continueBlock appends to an open block of kind k or opens a new one.
func (r *renderer) continueBlock(k blockKind, text string) {
	if r.open.kind == k {
		r.out.write(lineBreak + text)
		return
	}
	r.out.write(openText(text))
	r.open = openBlock{kind: k}
}

func (r *renderer) decision(options []story.Option) {
	if r.opts.RegisterDecisionSpeaker {
		r.addCharacter(r.opts.speaker())
	}
	r.closeBlock(blockNone)
	r.pending = append([]story.Option(nil), options...)
	r.optionCount = len(options)
	switch {
	case len(options) > 1:
		r.out.emit(unitBranchStart, markBranchStart)
	case len(options) == 1:
		r.out.write(resolvedLine(r.opts.speaker(), options[0].Text))
	}
}

func (r *renderer) predicate(refs []string) {
	r.closeBlock(blockNone)
	switch {
	case len(refs) == 0:
		return
	case len(refs) > 1:
		if len(refs) != len(r.pending) {
			r.out.write(markBranchEnd)
			return
		}
		// Every option leads to the same place: collapse the branch into a
		// single line.
		if r.out.dropLast(unitBranchStart) {
			r.out.write(resolvedLine(r.opts.speaker(), joinOptions(r.pending)))
		}
		return
	}
	if len(r.pending) == 0 || r.optionCount <= 1 {
		return
	}
	text, ok := r.takeOption(refs[0])
	if !ok {
		return
	}
	if !r.out.lastIs(unitBranchStart) {
		r.out.write(markBranch)
	}
	r.out.write(resolvedLine(r.opts.speaker(), text))
}

func (r *renderer) takeOption(value string) (string, bool) {
	for i, o := range r.pending {
		if o.Value == value {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			return o.Text, true
		}
	}
	return "", false
}

// joinOptions orders options by their numeric value and joins their texts.
// Values that are not numbers sort after numeric ones, in script order.
func joinOptions(options []story.Option) string {
	sorted := append([]story.Option(nil), options...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, aerr := strconv.ParseFloat(sorted[i].Value, 64)
		b, berr := strconv.ParseFloat(sorted[j].Value, 64)
		switch {
		case aerr == nil && berr == nil:
			return a < b
		default:
			return aerr == nil && berr != nil
		}
	})
	texts := make([]string, len(sorted))
	for i, o := range sorted {
		texts[i] = o.Text
	}
	return strings.Join(texts, optionJoiner)
}
