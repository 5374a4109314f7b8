package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
)

// resourceUsage formats elapsed wall time and the memory obtained from the OS.
func resourceUsage(elapsed time.Duration) string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return fmt.Sprintf("Time: %s, Memory: %s", formatElapsed(elapsed), humanize.IBytes(m.Sys))
}

func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}
