/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package story

// Tag names recognized by the typer. Matching is case-insensitive; names are
// lower-cased by Tokenize.
const (
	TagBackground   = "background"
	TagMultiline    = "multiline"
	TagLine         = "line"
	TagSticker      = "sticker"
	TagSubtitle     = "subtitle"
	TagDecision     = "decision"
	TagPredicate    = "predicate"
	TagBlocker      = "blocker"
	TagImage        = "image"
	TagCameraEffect = "cameraeffect"
	TagAnimText     = "animtext"

	TagCharSlot    = "charslot"
	TagPlayMusic   = "playmusic"
	TagHeader      = "header"
	TagPlaySound   = "playsound"
	TagStopSound   = "stopsound"
	TagCameraShake = "camerashake"
	TagBgEffect    = "bgeffect"
	TagImageTween  = "imagetween"
	TagDelay       = "delay"
	TagStopMusic   = "stopmusic"
	TagDialog      = "dialog"
)

// Command is one typed script line. The concrete types below form a closed
// set; Other catches every tag the notation does not know.
type Command interface {
	// Tag returns the lower-cased tag name the command was typed from.
	Tag() string
	// SourceLine returns the 1-based line number, or 0 when unknown.
	SourceLine() int
}

// Pos records where a command came from.
type Pos struct {
	Line int
}

func (p Pos) SourceLine() int { return p.Line }

// Background switches the scene backdrop. A nil Image reuses the previous one.
type Background struct {
	Pos
	Image       *string
	ScreenAdapt *string
	Block       bool
}

// Line is a single line of dialogue.
type Line struct {
	Pos
	Name string
	Text string
}

// Multiline is dialogue that continues a speaker's text box.
type Multiline struct {
	Pos
	Name string
	Text string
}

// Narration is free text outside any speaker.
type Narration struct {
	Pos
	Text string
}

type Sticker struct {
	Pos
	Text *string
}

// Subtitle is on-screen text. Animated text lines are typed as subtitles too.
type Subtitle struct {
	Pos
	Text *string
}

// Option is one choice of a Decision.
type Option struct {
	Value string
	Text  string
}

// Decision presents the player with one or more options, in script order.
type Decision struct {
	Pos
	Options []Option
}

// Predicate marks the start of the branch taken for the referenced options.
type Predicate struct {
	Pos
	References []string
}

type Blocker struct {
	Pos
	FadeTime *uint32
	Block    bool
	R, G, B  *float64
	A        *float64
}

type Image struct {
	Pos
	Image *string
}

type CameraEffect struct {
	Pos
	Effect *string
	Amount float64
}

type CharSlot struct {
	Pos
	Slot     *string
	Name     *string
	Focus    *string
	Duration *float64
}

type PlayMusic struct {
	Pos
	Intro     *string
	Key       *string
	Volume    *float64
	CrossFade *float64
	Delay     *float64
}

type StopMusic struct {
	Pos
	FadeTime *float64
}

type PlaySound struct {
	Pos
	Key     *string
	Volume  *float64
	Channel *uint32
	Loop    bool
	Delay   *float64
}

type StopSound struct {
	Pos
	Channel  *uint32
	FadeTime *float64
}

// Header carries the chapter title card.
type Header struct {
	Pos
	Key       *string
	Skippable bool
	FitMode   *string
	Title     string
}

type CameraShake struct {
	Pos
	Duration  *float64
	XStrength *float64
	YStrength *float64
	Vibrato   *uint32
	FadeOut   bool
}

type BgEffect struct {
	Pos
	Name  *string
	Layer *uint32
}

type ImageTween struct {
	Pos
	Image    *string
	XFrom    *float64
	XTo      *float64
	YFrom    *float64
	YTo      *float64
	Duration *float64
}

type Delay struct {
	Pos
	Time *float64
}

type Dialog struct {
	Pos
	FadeTime *float64
}

// Other keeps an unrecognized tag and all of its arguments untouched.
type Other struct {
	Pos
	Name string
	Args map[string]string
}

func (Background) Tag() string   { return TagBackground }
func (Line) Tag() string         { return TagLine }
func (Multiline) Tag() string    { return TagMultiline }
func (Narration) Tag() string    { return TagNarration }
func (Sticker) Tag() string      { return TagSticker }
func (Subtitle) Tag() string     { return TagSubtitle }
func (Decision) Tag() string     { return TagDecision }
func (Predicate) Tag() string    { return TagPredicate }
func (Blocker) Tag() string      { return TagBlocker }
func (Image) Tag() string        { return TagImage }
func (CameraEffect) Tag() string { return TagCameraEffect }
func (CharSlot) Tag() string     { return TagCharSlot }
func (PlayMusic) Tag() string    { return TagPlayMusic }
func (StopMusic) Tag() string    { return TagStopMusic }
func (PlaySound) Tag() string    { return TagPlaySound }
func (StopSound) Tag() string    { return TagStopSound }
func (Header) Tag() string       { return TagHeader }
func (CameraShake) Tag() string  { return TagCameraShake }
func (BgEffect) Tag() string     { return TagBgEffect }
func (ImageTween) Tag() string   { return TagImageTween }
func (Delay) Tag() string        { return TagDelay }
func (Dialog) Tag() string       { return TagDialog }
func (o Other) Tag() string      { return o.Name }
