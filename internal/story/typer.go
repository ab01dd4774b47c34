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
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Parse tokenizes and types a single line whose position is unknown.
func Parse(line string, n Notation) (Command, error) {
	return ParseLine(0, line, n)
}

// ParseLine tokenizes and types the line found at lineNo (1-based).
func ParseLine(lineNo int, line string, n Notation) (Command, error) {
	t, err := Tokenize(line)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Line = lineNo
		}
		return nil, err
	}
	return typeTag(Pos{Line: lineNo}, t, n)
}

// TypeTag maps a tokenized line onto its Command variant.
func TypeTag(t Tag, n Notation) (Command, error) {
	return typeTag(Pos{}, t, n)
}

// ParseScript splits text into lines and parses each of them. It stops at the
// first malformed line. Blank lines are errors unless skipBlank is set.
func ParseScript(text string, n Notation, skipBlank bool) ([]Command, error) {
	lines := SplitLines(text)
	cmds := make([]Command, 0, len(lines))
	for i, line := range lines {
		if skipBlank && strings.TrimSpace(line) == "" {
			continue
		}
		cmd, err := ParseLine(i+1, line, n)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// SplitLines breaks text on '\n', dropping a trailing '\r' from each line.
// A final newline does not start another line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func typeTag(pos Pos, t Tag, n Notation) (Command, error) {
	f := fields{pos: pos, tag: t.Name, args: t.Args}
	if !n.knows(t.Name) {
		return Other{Pos: pos, Name: t.Name, Args: t.Args}, nil
	}

	var cmd Command
	switch t.Name {
	case TagBackground:
		cmd = Background{Pos: pos, Image: f.str("image"), ScreenAdapt: f.str("screenadapt"), Block: f.boolean("block")}
	case TagMultiline:
		cmd = Multiline{Pos: pos, Name: f.required("name"), Text: t.Content}
	case TagLine:
		cmd = Line{Pos: pos, Name: f.required("name"), Text: t.Content}
	case TagNarration:
		cmd = Narration{Pos: pos, Text: t.Content}
	case TagSticker:
		cmd = Sticker{Pos: pos, Text: f.str("text")}
	case TagSubtitle:
		cmd = Subtitle{Pos: pos, Text: f.str("text")}
	case TagAnimText:
		text := animatedText(t.Content)
		cmd = Subtitle{Pos: pos, Text: &text}
	case TagDecision:
		cmd = Decision{Pos: pos, Options: f.options()}
	case TagPredicate:
		cmd = Predicate{Pos: pos, References: f.list("references")}
	case TagBlocker:
		cmd = Blocker{
			Pos:      pos,
			FadeTime: f.uint("fadetime"),
			Block:    f.boolean("block"),
			R:        f.float("r"),
			G:        f.float("g"),
			B:        f.float("b"),
			A:        f.float("a"),
		}
	case TagImage:
		cmd = Image{Pos: pos, Image: f.str("image")}
	case TagCameraEffect:
		var effect *string
		if e := f.str("effect"); e != nil {
			lowered := cases.Lower(language.Und).String(*e)
			effect = &lowered
		}
		amount := 0.0
		if a := f.float("amount"); a != nil {
			amount = *a
		}
		cmd = CameraEffect{Pos: pos, Effect: effect, Amount: amount}

	case TagCharSlot:
		cmd = CharSlot{Pos: pos, Slot: f.str("slot"), Name: f.str("name"), Focus: f.str("focus"), Duration: f.float("duration")}
	case TagPlayMusic:
		cmd = PlayMusic{Pos: pos, Intro: f.str("intro"), Key: f.str("key"), Volume: f.float("volume"), CrossFade: f.float("crossfade"), Delay: f.float("delay")}
	case TagStopMusic:
		cmd = StopMusic{Pos: pos, FadeTime: f.float("fadetime")}
	case TagPlaySound:
		cmd = PlaySound{Pos: pos, Key: f.str("key"), Volume: f.float("volume"), Channel: f.uint("channel"), Loop: f.boolean("loop"), Delay: f.float("delay")}
	case TagStopSound:
		cmd = StopSound{Pos: pos, Channel: f.uint("channel"), FadeTime: f.float("fadetime")}
	case TagHeader:
		cmd = Header{Pos: pos, Key: f.str("key"), Skippable: f.boolean("is_skippable"), FitMode: f.str("fit_mode"), Title: t.Content}
	case TagCameraShake:
		cmd = CameraShake{
			Pos:       pos,
			Duration:  f.float("duration"),
			XStrength: f.float("xstrength"),
			YStrength: f.float("ystrength"),
			Vibrato:   f.uint("vibrato"),
			FadeOut:   f.boolean("fadeout"),
		}
	case TagBgEffect:
		cmd = BgEffect{Pos: pos, Name: f.str("name"), Layer: f.uint("layer")}
	case TagImageTween:
		cmd = ImageTween{
			Pos:      pos,
			Image:    f.str("image"),
			XFrom:    f.float("xfrom"),
			XTo:      f.float("xto"),
			YFrom:    f.float("yfrom"),
			YTo:      f.float("yto"),
			Duration: f.float("duration"),
		}
	case TagDelay:
		cmd = Delay{Pos: pos, Time: f.float("time")}
	case TagDialog:
		cmd = Dialog{Pos: pos, FadeTime: f.float("fadetime")}
	default:
		return Other{Pos: pos, Name: t.Name, Args: t.Args}, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return cmd, nil
}

// animatedText flattens an animtext body: the </> and <p=1> markers are
// removed and the <p=2> separated fragments are joined in reverse order.
func animatedText(content string) string {
	content = strings.ReplaceAll(content, "</>", "")
	content = strings.ReplaceAll(content, "<p=1>", "")
	parts := strings.Split(content, "<p=2>")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "<br/>")
}

// fields reads typed values out of a tag's arguments and keeps the first
// failure. Optional numbers that do not parse are treated as absent.
type fields struct {
	pos  Pos
	tag  string
	args map[string]string
	err  error
}

func (f *fields) fail(err error, detail string) {
	if f.err == nil {
		f.err = &ParseError{Line: f.pos.Line, Tag: f.tag, Detail: detail, Err: err}
	}
}

// lookup finds an argument by its lower-case key. Tokenize folds keys, so
// Tags built by hand must use lower-case keys too.
func (f *fields) lookup(key string) (string, bool) {
	v, ok := f.args[key]
	return v, ok
}

func (f *fields) str(key string) *string {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	return &v
}

func (f *fields) required(key string) string {
	v, ok := f.lookup(key)
	if !ok {
		f.fail(ErrMissingArgument, strconv.Quote(key))
	}
	return v
}

func (f *fields) boolean(key string) bool {
	v, ok := f.lookup(key)
	if !ok {
		return false
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	}
	f.fail(ErrInvalidBool, key+"="+strconv.Quote(v))
	return false
}

func (f *fields) float(key string) *float64 {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &x
}

func (f *fields) uint(key string) *uint32 {
	v, ok := f.lookup(key)
	if !ok {
		return nil
	}
	x, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return nil
	}
	u := uint32(x)
	return &u
}

func (f *fields) list(key string) []string {
	v, _ := f.lookup(key)
	if v == "" {
		return []string{}
	}
	return strings.Split(v, ";")
}

// options zips the values and options lists of a decision. A repeated value
// keeps its first position and takes the later text.
func (f *fields) options() []Option {
	values := f.required("values")
	texts := f.required("options")
	if f.err != nil {
		return nil
	}
	vs := strings.Split(values, ";")
	ts := strings.Split(texts, ";")
	if len(vs) != len(ts) {
		f.fail(ErrOptionMismatch, strconv.Itoa(len(vs))+" values, "+strconv.Itoa(len(ts))+" options")
		return nil
	}
	out := make([]Option, 0, len(vs))
	seen := make(map[string]int, len(vs))
	for i, v := range vs {
		if at, ok := seen[v]; ok {
			out[at].Text = ts[i]
			continue
		}
		seen[v] = len(out)
		out = append(out, Option{Value: v, Text: ts[i]})
	}
	return out
}
