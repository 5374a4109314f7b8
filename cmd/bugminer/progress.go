package main

import (
	"fmt"
	"io"
	"strings"
	"time"
)

const progressWidth = 40

// progressBar renders mining progress on a single terminal line.
type progressBar struct {
	w     io.Writer
	total int
	done  int
	start time.Time
}

func newProgressBar(w io.Writer) *progressBar {
	return &progressBar{w: w}
}

func (p *progressBar) Start(total int) {
	p.total = total
	p.done = 0
	p.start = time.Now()
	p.draw()
}

func (p *progressBar) Advance() {
	if p.done < p.total {
		p.done++
	}
	p.draw()
}

func (p *progressBar) Finish() {
	if p.total > 0 {
		fmt.Fprintln(p.w)
	}
}

func (p *progressBar) draw() {
	if p.total <= 0 {
		return
	}
	fmt.Fprintf(p.w, "\r%s %d/%d %3d%% %s", renderBar(p.done, p.total, progressWidth),
		p.done, p.total, p.done*100/p.total, time.Since(p.start).Round(time.Second))
}

// renderBar draws done/total as a bracketed bar of the given width.
func renderBar(done, total, width int) string {
	filled := 0
	if total > 0 {
		filled = done * width / total
	}
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(strings.Repeat("=", filled))
	if filled < width {
		b.WriteByte('>')
		b.WriteString(strings.Repeat(" ", width-filled-1))
	}
	b.WriteByte(']')
	return b.String()
}
