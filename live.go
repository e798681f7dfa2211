package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const defaultWidth = 100

// liveRegion redraws the tail of a streaming answer in place. It only
// draws when out is a terminal; piped output gets the final render alone.
type liveRegion struct {
	out     io.Writer
	fd      int
	enabled bool
	lines   int
	height  int
}

func newLiveRegion(f *os.File) *liveRegion {
	fd := int(f.Fd())
	r := &liveRegion{out: f, fd: fd, enabled: term.IsTerminal(fd)}
	if r.enabled {
		if _, h, err := term.GetSize(fd); err == nil {
			r.height = h
		}
	}
	return r
}

// width is the render width for answers, capped to keep lines readable.
func (r *liveRegion) width() int {
	if !r.enabled {
		return defaultWidth
	}
	w, _, err := term.GetSize(r.fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return min(w-2, defaultWidth)
}

// redraw replaces the previously drawn frame with content. Only the last
// screenful is drawn, since the cursor cannot move above the viewport.
func (r *liveRegion) redraw(content string) {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if r.height > 2 && len(lines) > r.height-2 {
		lines = lines[len(lines)-(r.height-2):]
	}
	r.erase()
	fmt.Fprintln(r.out, strings.Join(lines, "\n"))
	r.lines = len(lines)
}

func (r *liveRegion) clear() {
	r.erase()
	r.lines = 0
}

func (r *liveRegion) erase() {
	if r.lines > 0 {
		fmt.Fprintf(r.out, "\033[%dA\033[J", r.lines)
	}
}
