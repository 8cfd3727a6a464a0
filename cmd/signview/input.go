package main

import (
	"strings"
	"sync"
	"unicode"
)

// maxLineRunes caps the typed line so the window title stays readable.
const maxLineRunes = 200

// lineEditor collects characters typed into the window until Enter.
type lineEditor struct {
	mu   sync.Mutex
	buf  []rune
	last string
}

func (e *lineEditor) insert(r rune) {
	if !unicode.IsPrint(r) {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.buf) < maxLineRunes {
		e.buf = append(e.buf, r)
	}
}

func (e *lineEditor) backspace() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := len(e.buf); n > 0 {
		e.buf = e.buf[:n-1]
	}
}

// commit returns the trimmed line and clears the buffer. An empty line yields "", false.
func (e *lineEditor) commit() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	text := strings.TrimSpace(string(e.buf))
	e.buf = e.buf[:0]
	if text == "" {
		return "", false
	}
	e.last = text
	return text, true
}

// remember records a line submitted from outside the window so replay can find it.
func (e *lineEditor) remember(text string) {
	e.mu.Lock()
	e.last = text
	e.mu.Unlock()
}

// replay returns the most recently committed line.
func (e *lineEditor) replay() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last, e.last != ""
}

func (e *lineEditor) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return string(e.buf)
}

// windowTitle renders the caption and the line being typed.
func windowTitle(caption, typing string) string {
	var b strings.Builder
	b.WriteString("signview")
	if caption = strings.TrimSpace(caption); caption != "" {
		b.WriteString(" | ")
		b.WriteString(caption)
	}
	b.WriteString(" | > ")
	b.WriteString(typing)
	return b.String()
}
