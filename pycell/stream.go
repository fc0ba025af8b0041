package pycell

import (
	"fmt"
	"io"

	"github.com/notebook-systems/nbdag/nbgraph"
)

// LogStream carries per-cell log entries out of a run as they complete,
// so a caller can show progress instead of waiting for the full report.
type LogStream struct {
	Outlet chan nbgraph.RunLog
}

func NewLogStream() *LogStream {
	stream := &LogStream{
		Outlet: make(chan nbgraph.RunLog, 1),
	}
	return stream
}

func (stream *LogStream) Close() {
	if stream.Outlet != nil {
		close(stream.Outlet)
	}
}

// Print forwards the stream to a new one, writing each entry to out as it
// passes through.
func (stream *LogStream) Print(out io.Writer) *LogStream {
	next := &LogStream{
		Outlet: make(chan nbgraph.RunLog, 1),
	}

	go func() {
		for entry := range stream.Outlet {
			fmt.Fprintf(out, "=== %s (%s)\n", entry.Node, entry.Component)
			if len(entry.Stdout) > 0 {
				io.WriteString(out, entry.Stdout)
			}
			next.Outlet <- entry
		}
		next.Close()
	}()

	return next
}

// PullAll drains the stream and returns how many entries passed through.
func (stream *LogStream) PullAll() int {
	count := int(0)
	for range stream.Outlet {
		count++
	}
	return count
}
