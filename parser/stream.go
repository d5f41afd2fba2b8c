package parser

import "strings"

// StreamFilter incrementally removes tag spans from streamed model text, so
// a live echo shows the same content Strip produces on the complete reply.
// Text that might still become a tag opener is held back until the ambiguity
// resolves; Flush releases whatever is held when the stream ends, since an
// opener that never closed is not an intent.
type StreamFilter struct {
	emit    func(string)
	pending string
	closer  string // non-empty while inside a tag span
	openLen int    // length of the matched opener kept in pending
}

func NewStreamFilter(emit func(string)) *StreamFilter {
	return &StreamFilter{emit: emit}
}

// Write feeds one streamed fragment through the filter, emitting every part
// that is certainly outside a tag span.
func (f *StreamFilter) Write(chunk string) {
	f.pending += chunk
	for {
		if f.closer != "" {
			i := strings.Index(f.pending[f.openLen:], f.closer)
			if i < 0 {
				return
			}
			f.pending = f.pending[f.openLen+i+len(f.closer):]
			f.closer, f.openLen = "", 0
			continue
		}
		lt := strings.IndexByte(f.pending, '<')
		if lt < 0 {
			break
		}
		if lt > 0 {
			f.emit(f.pending[:lt])
			f.pending = f.pending[lt:]
		}
		state, length, closer := matchOpener(f.pending)
		switch state {
		case openerMatch:
			f.closer, f.openLen = closer, length
		case openerPartial:
			return
		default:
			f.emit(f.pending[:1])
			f.pending = f.pending[1:]
		}
	}
	if f.pending != "" {
		f.emit(f.pending)
		f.pending = ""
	}
}

// Flush releases any held text. Call once after the stream completes.
func (f *StreamFilter) Flush() {
	if f.pending != "" {
		f.emit(f.pending)
		f.pending = ""
	}
	f.closer, f.openLen = "", 0
}

const (
	openerNone = iota
	openerPartial
	openerMatch
)

const (
	openExec   = "<execute_command>"
	closeExec  = "</execute_command>"
	openWrite  = "<write_file"
	closeWrite = "</write_file>"
)

// matchOpener classifies text starting with '<' against the two tag
// openers. A partial result means more input could still complete one.
func matchOpener(s string) (state, length int, closer string) {
	if strings.HasPrefix(s, openExec) {
		return openerMatch, len(openExec), closeExec
	}
	if strings.HasPrefix(openExec, s) || strings.HasPrefix(openWrite, s) {
		return openerPartial, 0, ""
	}
	if !strings.HasPrefix(s, openWrite) {
		return openerNone, 0, ""
	}
	state, length = matchWriteOpener(s)
	return state, length, closeWrite
}

// matchWriteOpener parses the attribute part of a write_file opener the same
// way writeTagRe does: whitespace, path="...", optional whitespace, '>'.
func matchWriteOpener(s string) (state, length int) {
	i := len(openWrite)
	if !isSpace(s[i]) {
		return openerNone, 0
	}
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	const attr = `path="`
	rest := s[i:]
	if len(rest) < len(attr) {
		if strings.HasPrefix(attr, rest) {
			return openerPartial, 0
		}
		return openerNone, 0
	}
	if !strings.HasPrefix(rest, attr) {
		return openerNone, 0
	}
	i += len(attr)
	q := strings.IndexByte(s[i:], '"')
	if q < 0 {
		return openerPartial, 0
	}
	i += q + 1
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i == len(s) {
		return openerPartial, 0
	}
	if s[i] != '>' {
		return openerNone, 0
	}
	return openerMatch, i + 1
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\f':
		return true
	}
	return false
}
