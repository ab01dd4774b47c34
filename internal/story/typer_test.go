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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func ptr[T any](v T) *T { return &v }

func TestParseCommands(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		notation Notation
		want     Command
	}{
		{
			name: "narration",
			line: "It was raining.",
			want: Narration{Text: "It was raining."},
		},
		{
			name: "dialogue shorthand",
			line: `[name="Amiya"]Doctor?`,
			want: Line{Name: "Amiya", Text: "Doctor?"},
		},
		{
			name: "multiline",
			line: `[multiline(name="Amiya", end=true)]...and then`,
			want: Multiline{Name: "Amiya", Text: "...and then"},
		},
		{
			name: "background defaults",
			line: `[Background(image="bg_field")]`,
			want: Background{Image: ptr("bg_field")},
		},
		{
			name: "background keeps block and screen adapt",
			line: `[Background(screenadapt="coverall", block=true)]`,
			want: Background{ScreenAdapt: ptr("coverall"), Block: true},
		},
		{
			name: "sticker",
			line: `[Sticker(id="st1", text="Three days later")]`,
			want: Sticker{Text: ptr("Three days later")},
		},
		{
			name: "subtitle without text",
			line: `[Subtitle(x=10)]`,
			want: Subtitle{},
		},
		{
			name: "decision keeps script order",
			line: `[Decision(options="Fine.;Not really.;...", values="2;1;3")]`,
			want: Decision{Options: []Option{{"2", "Fine."}, {"1", "Not really."}, {"3", "..."}}},
		},
		{
			name: "decision repeated value takes later text",
			line: `[Decision(options="A;B;C", values="1;2;1")]`,
			want: Decision{Options: []Option{{"1", "C"}, {"2", "B"}}},
		},
		{
			name: "predicate references",
			line: `[Predicate(references="1;2")]`,
			want: Predicate{References: []string{"1", "2"}},
		},
		{
			name: "predicate without references",
			line: `[Predicate]`,
			want: Predicate{References: []string{}},
		},
		{
			name: "blocker with lenient numbers",
			line: `[Blocker(a=1, r=0.5, g=x, fadetime=abc, block=true)]`,
			want: Blocker{A: ptr(1.0), R: ptr(0.5), Block: true},
		},
		{
			name: "blocker fade time",
			line: `[Blocker(a=0, fadetime=2)]`,
			want: Blocker{A: ptr(0.0), FadeTime: ptr(uint32(2))},
		},
		{
			name: "image",
			line: `[Image(image="cg_01", x=0)]`,
			want: Image{Image: ptr("cg_01")},
		},
		{
			name: "camera effect lower-cases effect",
			line: `[CameraEffect(effect="Grayscale", amount=1, fadetime=0)]`,
			want: CameraEffect{Effect: ptr("grayscale"), Amount: 1},
		},
		{
			name: "camera effect amount defaults to zero",
			line: `[CameraEffect(effect="Grayscale", amount=lots)]`,
			want: CameraEffect{Effect: ptr("grayscale")},
		},
		{
			name: "animtext is reversed into a subtitle",
			line: `[animtext(id="t1")]A<p=2>B<p=2>C</>`,
			want: Subtitle{Text: ptr("C<br/>B<br/>A")},
		},
		{
			name: "animtext strips paragraph markers",
			line: `[AnimText()]<p=1>Hi</><p=2>there`,
			want: Subtitle{Text: ptr("there<br/>Hi")},
		},
		{
			name: "unknown tag",
			line: `[CharacterAction(name="left", type="move")]`,
			want: Other{Name: "characteraction", Args: map[string]string{"name": "left", "type": "move"}},
		},
		{
			name: "extended tag in classic notation",
			line: `[PlaySound(key="$door", channel=2)]`,
			want: Other{Name: "playsound", Args: map[string]string{"key": "$door", "channel": "2"}},
		},
		{
			name:     "extended play sound",
			line:     `[PlaySound(key="$door", volume=0.8, channel=2, loop=true)]`,
			notation: NotationExtended,
			want:     PlaySound{Key: ptr("$door"), Volume: ptr(0.8), Channel: ptr(uint32(2)), Loop: true},
		},
		{
			name:     "extended channel id is optional",
			line:     `[StopSound(channel=left, fadetime=1.5)]`,
			notation: NotationExtended,
			want:     StopSound{FadeTime: ptr(1.5)},
		},
		{
			name:     "extended header",
			line:     `[HEADER(key="title_test", is_skippable=true, fit_mode="BLACK_MASK")] Operation`,
			notation: NotationExtended,
			want:     Header{Key: ptr("title_test"), Skippable: true, FitMode: ptr("BLACK_MASK"), Title: " Operation"},
		},
		{
			name:     "extended music",
			line:     `[PlayMusic(intro="$m_intro", key="$m_loop", volume=0.6, crossfade=2)]`,
			notation: NotationExtended,
			want:     PlayMusic{Intro: ptr("$m_intro"), Key: ptr("$m_loop"), Volume: ptr(0.6), CrossFade: ptr(2.0)},
		},
		{
			name:     "extended char slot",
			line:     `[charslot(slot="m", name="char_002_amiya_1#1", duration=0.5)]`,
			notation: NotationExtended,
			want:     CharSlot{Slot: ptr("m"), Name: ptr("char_002_amiya_1#1"), Duration: ptr(0.5)},
		},
		{
			name:     "extended camera shake",
			line:     `[CameraShake(duration=0.3, xstrength=10, ystrength=12, vibrato=30, fadeout=true)]`,
			notation: NotationExtended,
			want:     CameraShake{Duration: ptr(0.3), XStrength: ptr(10.0), YStrength: ptr(12.0), Vibrato: ptr(uint32(30)), FadeOut: true},
		},
		{
			name:     "extended timing and effects",
			line:     `[Delay(time=1)]`,
			notation: NotationExtended,
			want:     Delay{Time: ptr(1.0)},
		},
		{
			name:     "extended background effect",
			line:     `[bgEffect(name="rain", layer=3)]`,
			notation: NotationExtended,
			want:     BgEffect{Name: ptr("rain"), Layer: ptr(uint32(3))},
		},
		{
			name:     "extended image tween",
			line:     `[ImageTween(image="cg_02", xFrom=0, xTo=100, duration=2)]`,
			notation: NotationExtended,
			want:     ImageTween{Image: ptr("cg_02"), XFrom: ptr(0.0), XTo: ptr(100.0), Duration: ptr(2.0)},
		},
		{
			name: "mixed-case duplicate key keeps the later spelling",
			line: `[Image(IMAGE="a", Image="b")]`,
			want: Image{Image: ptr("b")},
		},
		{
			name:     "extended stop music and dialog",
			line:     `[stopmusic(fadetime=3)]`,
			notation: NotationExtended,
			want:     StopMusic{FadeTime: ptr(3.0)},
		},
		{
			name:     "extended dialog",
			line:     `[Dialog(fadetime=0.2)]`,
			notation: NotationExtended,
			want:     Dialog{FadeTime: ptr(0.2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line, tt.notation)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.line, err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
			if got.Tag() != tt.want.Tag() {
				t.Errorf("Tag() = %q, want %q", got.Tag(), tt.want.Tag())
			}
		})
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		notation Notation
		wantErr  error
		wantMsg  string
	}{
		{name: "empty", line: "", wantErr: ErrEmptyLine, wantMsg: "empty line"},
		{name: "line without name", line: `[line]hello`, wantErr: ErrMissingArgument, wantMsg: `line: missing required argument "name"`},
		{name: "multiline without name", line: `[multiline(end=true)]x`, wantErr: ErrMissingArgument},
		{name: "decision without values", line: `[Decision(options="a;b")]`, wantErr: ErrMissingArgument, wantMsg: `decision: missing required argument "values"`},
		{name: "decision without options", line: `[Decision(values="1;2")]`, wantErr: ErrMissingArgument},
		{name: "decision length mismatch", line: `[Decision(options="a;b", values="1;2;3")]`, wantErr: ErrOptionMismatch},
		{name: "background bad bool", line: `[Background(image="a", block=yes)]`, wantErr: ErrInvalidBool, wantMsg: `background: invalid boolean block="yes"`},
		{name: "blocker bad bool", line: `[Blocker(a=1, block=TRUE)]`, wantErr: ErrInvalidBool},
		{name: "extended bad bool", line: `[PlaySound(key="a", loop=1)]`, notation: NotationExtended, wantErr: ErrInvalidBool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.line, tt.notation)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Parse(%q) error = %v, want %v", tt.line, err, tt.wantErr)
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Fatalf("error message = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestExtendedTagsIgnoreBadBoolInClassic(t *testing.T) {
	cmd, err := Parse(`[PlaySound(key="a", loop=1)]`, NotationClassic)
	if err != nil {
		t.Fatalf("classic notation should not type playsound: %v", err)
	}
	if _, ok := cmd.(Other); !ok {
		t.Fatalf("expected Other, got %T", cmd)
	}
}

func TestParseScript(t *testing.T) {
	text := "[Background(image=\"bg_a\")]\r\n[name=\"Amiya\"]Hello.\r\nNarration here.\n"
	cmds, err := ParseScript(text, NotationClassic, false)
	if err != nil {
		t.Fatalf("ParseScript error: %v", err)
	}
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands, got %d", len(cmds))
	}
	for i, c := range cmds {
		if c.SourceLine() != i+1 {
			t.Errorf("command %d has line %d", i, c.SourceLine())
		}
	}
	if l, ok := cmds[1].(Line); !ok || l.Text != "Hello." {
		t.Fatalf("expected CR stripped dialogue, got %#v", cmds[1])
	}
}

func TestParseScriptReportsLine(t *testing.T) {
	text := "one\ntwo\n[Decision(values=\"1\")]\nfour"
	_, err := ParseScript(text, NotationClassic, false)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Line != 3 {
		t.Fatalf("expected line 3, got %d", pe.Line)
	}
	if want := `line 3: decision: missing required argument "options"`; err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestParseScriptBlankLines(t *testing.T) {
	text := "first\n\nsecond"
	if _, err := ParseScript(text, NotationClassic, false); !errors.Is(err, ErrEmptyLine) {
		t.Fatalf("blank line should fail, got %v", err)
	}
	cmds, err := ParseScript(text, NotationClassic, true)
	if err != nil {
		t.Fatalf("skip blank: %v", err)
	}
	if len(cmds) != 2 || cmds[1].SourceLine() != 3 {
		t.Fatalf("unexpected commands: %#v", cmds)
	}
}

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\r\nb\r\n", []string{"a", "b"}},
		{"a\n\nb", []string{"a", "", "b"}},
		{"\n", []string{""}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, SplitLines(tt.in)); diff != "" {
			t.Errorf("SplitLines(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestParseNotation(t *testing.T) {
	for in, want := range map[string]Notation{"": NotationClassic, "Classic": NotationClassic, " extended ": NotationExtended} {
		got, err := ParseNotation(in)
		if err != nil || got != want {
			t.Errorf("ParseNotation(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseNotation("modern"); err == nil {
		t.Fatalf("expected error for unknown notation")
	}
	if NotationExtended.String() != "extended" || NotationClassic.String() != "classic" {
		t.Fatalf("unexpected notation names")
	}
}
