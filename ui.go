package main

import (
	"github.com/gdamore/tcell/v2"
)

var backgroundColour = tcell.GetColor("#282a36")
var titleColour = tcell.GetColor("#F879C0")
var sizeColour = tcell.GetColor("#ffb86c")

var entryBgColour = tcell.GetColor("#282a36")
var entryFgColour = tcell.GetColor("#626A86")
var entryHighlightBgColour = tcell.GetColor("#526A9E")
var entryHighlightFgColour = tcell.GetColor("#bc91f3")

var boxBgColour = tcell.GetColor("#282a36")
var boxFgColour = tcell.GetColor("#526A9E")

var defaultStyle = tcell.StyleDefault.Background(backgroundColour).Foreground(tcell.ColorReset)
var headingStyle = tcell.StyleDefault.Background(backgroundColour).Foreground(titleColour).Bold(true)

var frameStyle = tcell.StyleDefault.Background(boxBgColour).Foreground(boxFgColour)

// frame outlines the w by h cells at x, y. Frames under 2x2 are not drawn.
func frame(s tcell.Screen, x, y, w, h int) {
	if w < 2 || h < 2 {
		return
	}
	right, bottom := x+w-1, y+h-1
	for i := x + 1; i < right; i++ {
		s.SetContent(i, y, tcell.RuneHLine, nil, frameStyle)
		s.SetContent(i, bottom, tcell.RuneHLine, nil, frameStyle)
	}
	for j := y + 1; j < bottom; j++ {
		s.SetContent(x, j, tcell.RuneVLine, nil, frameStyle)
		s.SetContent(right, j, tcell.RuneVLine, nil, frameStyle)
	}
	s.SetContent(x, y, tcell.RuneULCorner, nil, frameStyle)
	s.SetContent(right, y, tcell.RuneURCorner, nil, frameStyle)
	s.SetContent(x, bottom, tcell.RuneLLCorner, nil, frameStyle)
	s.SetContent(right, bottom, tcell.RuneLRCorner, nil, frameStyle)
}

// drawText writes text on one line, cut or padded to width cells.
func drawText(s tcell.Screen, x, y, width int, style tcell.Style, text string) {
	col := 0
	for _, r := range text {
		if col >= width {
			return
		}
		s.SetContent(x+col, y, r, nil, style)
		col++
	}
	for ; col < width; col++ {
		s.SetContent(x+col, y, ' ', nil, style)
	}
}
