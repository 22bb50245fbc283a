package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"vidresume/internal/pipeline"
)

// progressPrinter renders stage progress. On a terminal it redraws a single
// line; otherwise it prints a line per stage at quarter checkpoints.
type progressPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	redraw  bool
	percent map[string]int
	printed map[string]int
	drawn   bool
}

func newProgressPrinter(out io.Writer) *progressPrinter {
	return &progressPrinter{
		out:     out,
		redraw:  isTerminal(out),
		percent: make(map[string]int, len(pipeline.StageNames)),
		printed: make(map[string]int, len(pipeline.StageNames)),
	}
}

func (p *progressPrinter) Update(name string, pct int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent[name] = pct
	if p.redraw {
		fmt.Fprintf(p.out, "\r%s", p.lineLocked())
		p.drawn = true
		return
	}
	bucket := pct / 25 * 25
	last, seen := p.printed[name]
	if seen && bucket <= last {
		return
	}
	p.printed[name] = bucket
	fmt.Fprintf(p.out, "%s: %d%%\n", name, pct)
}

// Reset forgets printed checkpoints, used after a restart.
func (p *progressPrinter) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	clear(p.printed)
}

func (p *progressPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}

func (p *progressPrinter) lineLocked() string {
	parts := make([]string, 0, len(pipeline.StageNames))
	for _, name := range pipeline.StageNames {
		parts = append(parts, fmt.Sprintf("%s %3d%%", name, p.percent[name]))
	}
	return strings.Join(parts, " | ")
}
