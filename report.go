package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/benwiggins/vgmplay/pkg/delay"
	"github.com/benwiggins/vgmplay/pkg/vgm"
	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
	note  lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
	gd3   lipgloss.Style
}

// ANSI colours: 1 red, 3 yellow, 4 blue, 5 magenta, 6 cyan, 7 white, 8 grey

func newStyles(plain bool) styles {
	if plain {
		s := lipgloss.NewStyle()
		return styles{title: s, label: s, value: s, note: s, warn: s, err: s, gd3: s}
	}
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(5)),
		label: lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)),
		value: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(6)),
		note:  lipgloss.NewStyle().Italic(true).Foreground(lipgloss.ANSIColor(3)),
		warn:  lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(3)),
		err:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(1)),
		gd3: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.ANSIColor(4)).
			Padding(0, 1),
	}
}

type reporter struct {
	w    io.Writer
	errw io.Writer // failures; w when nil
	st   styles
}

func (r reporter) field(label string, format string, args ...any) {
	fmt.Fprintf(r.w, "%s %s\n", r.st.label.Render(fmt.Sprintf("%-18s", label)), r.st.value.Render(fmt.Sprintf(format, args...)))
}

// header prints the chips the file asks for and what this player makes of them.
func (r reporter) header(path string, f *vgm.File) {
	h := &f.Header

	title := path
	if f.Compressed {
		title += " (vgz)"
	}
	fmt.Fprintln(r.w, r.st.title.Render(title))
	r.field("version", "%x.%02x", h.Version>>8, h.Version&0xff)
	r.field("SN76489 clock", "%d", h.SN76489Clock)
	r.field("SN76489 feedback", "0x%x", h.SN76489Feedback)
	r.field("SN76489 FSR width", "%d", h.SN76489ShiftWidth)
	r.field("SN76489 flags", "0x%x", h.SN76489Flags)

	if h.AY8910Clock != 0 {
		r.field("AY-8910 clock", "%d", h.AuxClock())
		r.field("AY-8910 chip type", "%d", h.AY8910Type)
		r.field("AY-8910 flags", "0x%02x 0x%02x 0x%02x", h.AY8910Flags[0], h.AY8910Flags[1], h.AY8910Flags[2])
		fmt.Fprintln(r.w, r.st.note.Render("AY-8910 is assumed to be placeholder for PC speaker."))
	}

	for _, name := range h.UnsupportedChips() {
		fmt.Fprintln(r.w, r.st.warn.Render(fmt.Sprintf("Sound chip %s not supported by this player.", name)))
	}

	r.field("stream", "%d bytes", len(f.Stream))
	if h.TotalSamples != 0 {
		r.field("length", "%s", round(h.Duration()))
	}
}

// gd3 prints the metadata block, skipping empty fields.
func (r reporter) gd3(tag *vgm.GD3) {
	var lines []string
	add := func(label, en, jp string) {
		v := en
		if jp != "" && jp != en {
			if v != "" {
				v += " / "
			}
			v += jp
		}
		if v != "" {
			lines = append(lines, fmt.Sprintf("%-8s %s", label, v))
		}
	}
	add("Track", tag.Track, tag.TrackJP)
	add("Game", tag.Game, tag.GameJP)
	add("System", tag.System, tag.SystemJP)
	add("Author", tag.Author, tag.AuthorJP)
	add("Date", tag.Date, "")
	add("Ripped", tag.RippedBy, "")
	add("Notes", strings.ReplaceAll(tag.Notes, "\n", " "), "")

	if tag.Unexpected {
		fmt.Fprintln(r.w, r.st.warn.Render(fmt.Sprintf("Unknown GD3 version %x", tag.Version)))
	}
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(r.w, r.st.gd3.Render(strings.Join(lines, "\n")))
}

func (r reporter) ratio(ratio delay.Ratio, calibrated bool) {
	source := "from command line"
	if calibrated {
		source = "calibrated"
	}
	r.field("delay ratio", "%s (%s)", ratio, source)
}

// played prints the wall time against what the stream asked for.
func (r reporter) played(elapsed time.Duration, samples uint64, h *vgm.Header) {
	want := time.Duration(samples) * time.Second / vgm.SampleRate
	r.field("elapsed", "%s", round(elapsed))
	r.field("stream time", "%s", round(want))
	if h.TotalSamples != 0 {
		r.field("header length", "%s", round(h.Duration()))
	}
}

func (r reporter) fail(err error) {
	w := r.errw
	if w == nil {
		w = r.w
	}
	fmt.Fprintln(w, r.st.err.Render(" "+err.Error()+" "))
}

func round(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}
