package sandbox

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rendis/codeflow/pkg/schema"
)

// outputBuffer collects printed text and silently discards characters beyond
// the limit. It may be read while an abandoned interpreter still writes.
type outputBuffer struct {
	mu        sync.Mutex
	buf       strings.Builder
	limit     int
	written   int
	truncated bool
}

func newOutputBuffer(limit int) *outputBuffer {
	return &outputBuffer{limit: limit}
}

// WriteString appends s, counting characters rather than bytes.
func (ob *outputBuffer) WriteString(s string) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	if ob.limit <= 0 {
		ob.buf.WriteString(s)
		return
	}
	remaining := ob.limit - ob.written
	if remaining <= 0 {
		if s != "" {
			ob.truncated = true
		}
		return
	}
	n := utf8.RuneCountInString(s)
	if n <= remaining {
		ob.buf.WriteString(s)
		ob.written += n
		return
	}

	// Cut at the byte offset of the first rune past the limit.
	cut, count := 0, 0
	for i := range s {
		if count == remaining {
			cut = i
			break
		}
		count++
	}
	ob.buf.WriteString(s[:cut])
	ob.written += remaining
	ob.truncated = true
}

// String returns the captured text, with the truncation marker when the
// limit was exceeded.
func (ob *outputBuffer) String() string {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	if ob.truncated {
		return ob.buf.String() + schema.TruncationMarker
	}
	return ob.buf.String()
}

// Truncated reports whether any output was dropped.
func (ob *outputBuffer) Truncated() bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.truncated
}
