package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benwiggins/vgmplay/pkg/delay"
	"github.com/benwiggins/vgmplay/pkg/vgm"
	"github.com/gdamore/tcell/v2"
	"golang.org/x/text/encoding/unicode"
)

// buildVGM lays out a version 1.71 image with an optional GD3 track title.
func buildVGM(stream []byte, title string) []byte {
	data := make([]byte, vgm.HeaderSize)
	copy(data, vgm.Ident)
	binary.LittleEndian.PutUint32(data[0x08:], 0x171)
	binary.LittleEndian.PutUint32(data[0x0c:], 3579545)
	binary.LittleEndian.PutUint32(data[0x34:], vgm.HeaderSize-0x34)
	data = append(data, stream...)

	if title != "" {
		binary.LittleEndian.PutUint32(data[0x14:], uint32(len(data))-0x14)
		enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
		body, _ := enc.Bytes([]byte(title))
		body = append(body, 0, 0)
		data = append(data, "Gd3 "...)
		data = binary.LittleEndian.AppendUint32(data, 0x100)
		data = binary.LittleEndian.AppendUint32(data, uint32(len(body)))
		data = append(data, body...)
	}
	binary.LittleEndian.PutUint32(data[0x04:], uint32(len(data))-4)
	return data
}

func TestParseArgs(t *testing.T) {
	testCases := []struct {
		name  string
		args  []string
		path  string
		ratio delay.Ratio
		info  bool
		err   error
	}{
		{"no file", nil, "", delay.Ratio{}, false, nil},
		{"file", []string{"song.vgm"}, "song.vgm", delay.Ratio{}, false, nil},
		{"ratio", []string{"song.vgm", "2422", "9000"}, "song.vgm", delay.Ratio{N: 2422, D: 9000}, false, nil},
		{"flags", []string{"-info", "-backend", "emu", "song.vgz"}, "song.vgz", delay.Ratio{}, true, nil},
		{"ratio too big", []string{"song.vgm", "2422", "40000"}, "", delay.Ratio{}, false, errUsage},
		{"ratio zero", []string{"song.vgm", "0", "5"}, "", delay.Ratio{}, false, errUsage},
		{"ratio not a number", []string{"song.vgm", "a", "5"}, "", delay.Ratio{}, false, errUsage},
		{"half a ratio", []string{"song.vgm", "2422"}, "", delay.Ratio{}, false, errUsage},
		{"bad backend", []string{"-backend", "alsa", "song.vgm"}, "", delay.Ratio{}, false, errUsage},
		{"bad burn", []string{"-burn", "0", "song.vgm"}, "", delay.Ratio{}, false, errUsage},
		{"unknown flag", []string{"-x"}, "", delay.Ratio{}, false, errUsage},
		{"help", []string{"-h"}, "", delay.Ratio{}, false, flag.ErrHelp},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			opts, err := parseArgs(append([]string{"vgmplay"}, tc.args...), io.Discard)
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if opts.path != tc.path || opts.ratio != tc.ratio || opts.info != tc.info {
				t.Errorf("got %+v", opts)
			}
			if opts.burn != delay.DefaultBurn {
				t.Errorf("burn %d, want default %d", opts.burn, delay.DefaultBurn)
			}
		})
	}
}

func TestReportHeader(t *testing.T) {
	data := buildVGM([]byte{0x66}, "Title Theme")
	binary.LittleEndian.PutUint32(data[0x2c:], 7670453)
	binary.LittleEndian.PutUint32(data[0x74:], 1789772)
	f, err := vgm.Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	tag, err := f.GD3()
	if err != nil {
		t.Fatalf("GD3: %v", err)
	}

	var buf bytes.Buffer
	r := reporter{w: &buf, st: newStyles(true)}
	r.header("song.vgm", f)
	r.gd3(tag)
	r.ratio(delay.Ratio{N: 2422, D: 9000}, true)
	r.played(1500*time.Millisecond, vgm.SampleRate, &f.Header)

	out := buf.String()
	for _, want := range []string{
		"song.vgm",
		"1.71",
		"3579545",
		"AY-8910 is assumed to be placeholder for PC speaker.",
		"Sound chip YM2612 not supported by this player.",
		"Title Theme",
		"2422/9000 (calibrated)",
		"1.5s",
		"1s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report lacks %q:\n%s", want, out)
		}
	}
}

func TestReportWithoutAux(t *testing.T) {
	f, err := vgm.Parse(buildVGM([]byte{0x66}, ""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	var buf bytes.Buffer
	reporter{w: &buf, st: newStyles(true)}.header("song.vgm", f)
	if strings.Contains(buf.String(), "AY-8910") || strings.Contains(buf.String(), "not supported") {
		t.Errorf("unexpected chip notes:\n%s", buf.String())
	}
}

func TestReportFailGoesToErrorWriter(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := reporter{w: &stdout, errw: &stderr, st: newStyles(true)}
	r.fail(errors.New("no such chip"))

	if stdout.Len() != 0 {
		t.Errorf("failure written to stdout: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "no such chip") {
		t.Errorf("stderr is %q", stderr.String())
	}
}

func writeFiles(t *testing.T, dir string, files map[string][]byte) {
	t.Helper()
	for name, data := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{
		"a.vgm":       buildVGM([]byte{0x66}, "A"),
		"b.VGZ":       {0x1f, 0x8b},
		"c.txt":       []byte("text"),
		"go.mod":      []byte("module x"),
		"sub/d.vgm":   buildVGM([]byte{0x66}, ""),
		"vgm.ignored": nil,
	})

	entries, err := parseDir(dir)
	if err != nil {
		t.Fatalf("parseDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.name)
	}
	want := []string{"../", "a.vgm", "b.VGZ", "sub/"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", names, want)
	}
}

func TestTrackTitle(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{
		"tagged.vgm": buildVGM([]byte{0x66}, "Overworld"),
		"bare.vgm":   buildVGM([]byte{0x66}, ""),
		"junk.vgm":   []byte("junk"),
	})

	for name, want := range map[string]string{"tagged.vgm": "Overworld", "bare.vgm": "", "junk.vgm": "", "missing.vgm": ""} {
		if got := trackTitle(filepath.Join(dir, name)); got != want {
			t.Errorf("%s: got %q, want %q", name, got, want)
		}
	}
}

func TestBrowserNavigation(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{
		"one.vgm":       buildVGM([]byte{0x66}, ""),
		"two.vgm":       buildVGM([]byte{0x66}, ""),
		"sub/three.vgm": buildVGM([]byte{0x66}, ""),
	})

	b, err := newBrowser(dir)
	if err != nil {
		t.Fatalf("newBrowser: %v", err)
	}
	if len(b.entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(b.entries))
	}

	b.move(-1)
	if b.idx != 3 {
		t.Errorf("wrap up: idx %d", b.idx)
	}
	b.move(1)
	if b.idx != 0 {
		t.Errorf("wrap down: idx %d", b.idx)
	}
	b.move(6)
	if b.idx != 2 {
		t.Errorf("long move: idx %d", b.idx)
	}

	b.idx = 3
	b.scroll(2)
	if b.top != 2 {
		t.Errorf("scroll: top %d, want 2", b.top)
	}

	if err := b.changeDir("sub/"); err != nil {
		t.Fatalf("changeDir: %v", err)
	}
	if filepath.Base(b.dir) != "sub" || b.idx != 0 || b.top != 0 {
		t.Errorf("unexpected browser state %+v", b)
	}
	if err := b.changeDir("../"); err != nil {
		t.Fatalf("changeDir: %v", err)
	}
	if b.dir != filepath.Clean(dir) {
		t.Errorf("back up to %s, want %s", b.dir, dir)
	}
}

func TestBrowserDraw(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{
		"song.vgm": buildVGM([]byte{0x66}, "Boss"),
	})
	b, err := newBrowser(dir)
	if err != nil {
		t.Fatalf("newBrowser: %v", err)
	}
	b.idx = 1

	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.Fini()
	s.SetSize(80, 10)
	b.draw(s)

	line := func(y int) string {
		var sb strings.Builder
		for x := 0; x < 80; x++ {
			r, _, _, _ := s.GetContent(x, y)
			sb.WriteRune(r)
		}
		return sb.String()
	}
	if got := line(2); !strings.Contains(got, "song.vgm") || !strings.Contains(got, "Boss") {
		t.Errorf("row 2 is %q", got)
	}
	if got := line(1); !strings.Contains(got, "../") || !strings.Contains(got, "<dir>") {
		t.Errorf("row 1 is %q", got)
	}
	corners := map[[2]int]rune{
		{0, 0}: tcell.RuneULCorner, {79, 0}: tcell.RuneURCorner,
		{0, 9}: tcell.RuneLLCorner, {79, 9}: tcell.RuneLRCorner,
		{1, 0}: tcell.RuneHLine, {40, 9}: tcell.RuneHLine,
		{0, 5}: tcell.RuneVLine, {79, 5}: tcell.RuneVLine,
	}
	for pos, want := range corners {
		if r, _, _, _ := s.GetContent(pos[0], pos[1]); r != want {
			t.Errorf("cell %v is %q, want %q", pos, r, want)
		}
	}
}

func TestFrameTooSmall(t *testing.T) {
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer s.Fini()
	s.SetSize(4, 4)
	s.Fill('.', tcell.StyleDefault)

	frame(s, 0, 0, 1, 4)
	frame(s, 0, 0, 4, 1)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if r, _, _, _ := s.GetContent(x, y); r != '.' {
				t.Errorf("cell %d,%d overwritten with %q", x, y, r)
			}
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string][]byte{
		"ok.vgm":  buildVGM([]byte{0x62, 0x66}, ""),
		"bad.vgm": bytes.Repeat([]byte{0}, 0x100),
	})

	f, err := loadFile(filepath.Join(dir, "ok.vgm"))
	if err != nil {
		t.Fatalf("loadFile: %v", err)
	}
	if !bytes.Equal(f.Stream, []byte{0x62, 0x66}) {
		t.Errorf("stream % x", f.Stream)
	}

	if _, err := loadFile(filepath.Join(dir, "bad.vgm")); !errors.Is(err, vgm.ErrIdent) {
		t.Errorf("expected ErrIdent, got %v", err)
	}
	if _, err := loadFile(filepath.Join(dir, "missing.vgm")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestRunUsageErrors(t *testing.T) {
	for _, args := range [][]string{
		{"vgmplay", "song.vgm", "1"},
		{"vgmplay", "-backend", "nope", "song.vgm"},
		{"vgmplay", "song.vgm", "1", "0"},
	} {
		if code := run(args); code != exitUsage {
			t.Errorf("%v: exit %d, want %d", args, code, exitUsage)
		}
	}
}

func TestRunInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.vgm")
	writeFiles(t, dir, map[string][]byte{"song.vgm": buildVGM([]byte{0x99, 0x66}, "Info")})

	if code := run([]string{"vgmplay", "-info", "-plain", path}); code != exitOK {
		t.Errorf("exit %d, want %d", code, exitOK)
	}
	if code := run([]string{"vgmplay", "-info", filepath.Join(dir, "missing.vgm")}); code != exitError {
		t.Errorf("missing file: exit %d, want %d", code, exitError)
	}
}
