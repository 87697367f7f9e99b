package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/nsf/termbox-go"
)

const (
	colDef    = termbox.ColorDefault
	colWhite  = termbox.ColorWhite
	colGreen  = termbox.ColorGreen
	colCyan   = termbox.ColorCyan
	colYellow = termbox.ColorYellow
)

// runDashboard renders a live termbox status view of the monitor state
// while periodically feeding the synthetic generator, until the user
// presses 'q'/Esc, a signal arrives, or ctx is canceled.
func runDashboard(ctx context.Context, s *monitorState, sigCh <-chan os.Signal) error {
	if err := termbox.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize TUI: %v\n", err)
		return runHeadless(ctx, s, sigCh)
	}
	defer termbox.Close()
	termbox.SetInputMode(termbox.InputEsc)

	eventQueue := make(chan termbox.Event)
	go func() {
		for {
			eventQueue <- termbox.PollEvent()
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	var lastGenerated int
	draw(s, lastGenerated)

	for {
		select {
		case <-sigCh:
			return nil
		case <-ctx.Done():
			return nil
		case ev := <-eventQueue:
			if ev.Type == termbox.EventKey && (ev.Key == termbox.KeyEsc || ev.Ch == 'q') {
				return nil
			}
			if ev.Type == termbox.EventResize {
				draw(s, lastGenerated)
			}
		case <-ticker.C:
			n, err := s.feedAndDrain(256)
			if err != nil {
				return err
			}
			lastGenerated = n
			draw(s, lastGenerated)
		}
	}
}

func draw(s *monitorState, lastGenerated int) {
	_ = termbox.Clear(colDef, colDef)

	printTB(0, 0, colCyan, colDef, "SDR Decimating FIR Filter Monitor")
	printTB(0, 1, colWhite, colDef, "'q' or Esc to quit.")
	printTB(0, 2, colDef, colDef, "----------------------------------------")

	heldLabel := "1"
	if s.filter.Full() {
		heldLabel = "2"
	}

	printTB(0, 4, colWhite, colDef, fmt.Sprintf("Decimation:        %d", s.decimation))
	printTB(0, 5, colWhite, colDef, fmt.Sprintf("Buffers held:      %s", heldLabel))
	printTB(0, 6, colGreen, colDef, fmt.Sprintf("Last batch output: %d samples", lastGenerated))
	printTB(0, 7, colYellow, colDef, fmt.Sprintf("Total generated:   %d samples", s.generatedTotal))
	printTB(0, 8, colWhite, colDef, fmt.Sprintf("Telemetry clients: %d", s.hub.ClientCount()))

	_ = termbox.Flush()
}

func printTB(x, y int, fg, bg termbox.Attribute, msg string) {
	for _, c := range msg {
		termbox.SetCell(x, y, c, fg, bg)
		x++
	}
}
