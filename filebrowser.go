package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gdamore/tcell/v2"
)

var fileStyle = tcell.StyleDefault.Background(entryBgColour).Foreground(entryFgColour)
var fileHighlightStyle = tcell.StyleDefault.Background(entryHighlightBgColour).Foreground(entryHighlightFgColour).Bold(true)
var vgmRegexp = regexp.MustCompile(`(?i)\.vg[mz]$`)

type file struct {
	name  string
	isDir bool
	size  int64
	title *string // GD3 track title, read on first draw
}

func parseDir(path string) ([]file, error) {
	var matchingFiles []file

	if abs, err := filepath.Abs(path); err != nil || filepath.Dir(abs) != abs {
		matchingFiles = append(matchingFiles, file{name: "../", isDir: true})
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.IsDir() {
			matchingFiles = append(matchingFiles, file{name: e.Name() + "/", isDir: true})
			continue
		}
		if !vgmRegexp.MatchString(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		matchingFiles = append(matchingFiles, file{name: e.Name(), size: info.Size()})
	}

	return matchingFiles, nil
}

// trackTitle is the GD3 track name of a file, falling back to the game name.
// Unreadable files have no title.
func trackTitle(path string) string {
	f, err := loadFile(path)
	if err != nil {
		return ""
	}
	tag, err := f.GD3()
	if err != nil {
		return ""
	}
	if tag.Track != "" {
		return tag.Track
	}
	return tag.Game
}

type browser struct {
	dir     string
	idx     int
	top     int
	entries []file
}

func newBrowser(dir string) (*browser, error) {
	b := &browser{}
	if err := b.changeDir(dir); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *browser) changeDir(dir string) error {
	if b.dir != "" {
		dir = filepath.Join(b.dir, dir)
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	entries, err := parseDir(dir)
	if err != nil {
		return err
	}
	b.dir = dir
	b.entries = entries
	b.idx = 0
	b.top = 0
	return nil
}

// move steps the selection, wrapping at both ends.
func (b *browser) move(delta int) {
	if len(b.entries) == 0 {
		return
	}
	b.idx = (b.idx + delta) % len(b.entries)
	if b.idx < 0 {
		b.idx += len(b.entries)
	}
}

// scroll keeps the selection inside a window of rows lines.
func (b *browser) scroll(rows int) {
	if rows < 1 {
		rows = 1
	}
	if b.idx < b.top {
		b.top = b.idx
	}
	if b.idx >= b.top+rows {
		b.top = b.idx - rows + 1
	}
}

func (b *browser) selected() (file, bool) {
	if len(b.entries) == 0 {
		return file{}, false
	}
	return b.entries[b.idx], true
}

func (b *browser) draw(s tcell.Screen) {
	width, height := s.Size()
	s.Fill(' ', defaultStyle)
	frame(s, 0, 0, width, height)
	drawText(s, 2, 0, width-4, headingStyle, " "+b.dir+" ")

	rows := height - 2
	b.scroll(rows)
	for row := 0; row < rows && b.top+row < len(b.entries); row++ {
		idx := b.top + row
		entry := &b.entries[idx]
		style := fileStyle
		if idx == b.idx {
			style = fileHighlightStyle
		}

		yPos := row + 1
		drawText(s, 1, yPos, 32, style, fmt.Sprintf("%-31s", entry.name))
		if entry.isDir {
			drawText(s, 33, yPos, 9, style, "<dir>")
			drawText(s, 42, yPos, width-43, style, "")
			continue
		}
		drawText(s, 33, yPos, 9, style.Foreground(sizeColour), fmt.Sprintf("%-8d", entry.size))
		if entry.title == nil {
			title := trackTitle(filepath.Join(b.dir, entry.name))
			entry.title = &title
		}
		drawText(s, 42, yPos, width-43, style, *entry.title)
	}
	s.Show()
}

// browse lets the user pick a VGM file under dir. An empty path means the user
// quit without choosing.
func browse(dir string) (string, error) {
	b, err := newBrowser(dir)
	if err != nil {
		return "", err
	}

	s, err := tcell.NewScreen()
	if err != nil {
		return "", err
	}
	if err := s.Init(); err != nil {
		return "", err
	}
	defer s.Fini()
	s.SetStyle(defaultStyle)
	s.Clear()

	for {
		b.draw(s)

		switch ev := s.PollEvent().(type) {
		case *tcell.EventResize:
			s.Sync()
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyDown:
				b.move(1)
			case tcell.KeyUp:
				b.move(-1)
			case tcell.KeyPgDn:
				_, h := s.Size()
				b.move(h - 2)
			case tcell.KeyPgUp:
				_, h := s.Size()
				b.move(-(h - 2))
			case tcell.KeyHome:
				b.idx = 0
			case tcell.KeyEnd:
				b.idx = max(len(b.entries)-1, 0)
			case tcell.KeyEscape, tcell.KeyCtrlC:
				return "", nil
			case tcell.KeyEnter:
				entry, ok := b.selected()
				if !ok {
					continue
				}
				if !entry.isDir {
					return filepath.Join(b.dir, entry.name), nil
				}
				if err := b.changeDir(entry.name); err != nil {
					return "", err
				}
				s.Clear()
			case tcell.KeyRune:
				if r := ev.Rune(); r == 'q' || r == 'Q' {
					return "", nil
				}
			}
		}
	}
}
