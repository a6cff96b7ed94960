package effect

import "fmt"

// LogEntry is one structured entry in a Log: an optional tag (typically a
// causaloid or node id, or "Intervention") and a free-text message.
type LogEntry struct {
	Tag  string
	Text string
}

// Log is an append-only, left-to-right ordered log of diagnostic entries
// accumulated across a bind/fmap chain, a Collection's children, or a
// graph traversal. It is a value type: every mutator returns a new Log,
// so a Log held by one stage of a chain is never retroactively changed by
// a later stage.
type Log []LogEntry

// AddEntry appends a single untagged entry and returns the new Log.
func (l Log) AddEntry(text string) Log {
	return l.AddTagged("", text)
}

// AddTagged appends a tagged entry (e.g. a causaloid id) and returns the
// new Log.
func (l Log) AddTagged(tag, text string) Log {
	out := make(Log, len(l), len(l)+1)
	copy(out, l)
	return append(out, LogEntry{Tag: tag, Text: text})
}

// Append concatenates other after l and returns the new Log. This is the
// combinator bind/fmap use to preserve prior-stage logs ahead of the
// continuation's own logs.
func (l Log) Append(other Log) Log {
	if len(other) == 0 {
		return l
	}
	out := make(Log, 0, len(l)+len(other))
	out = append(out, l...)
	out = append(out, other...)
	return out
}

// Len reports the number of entries.
func (l Log) Len() int {
	return len(l)
}

// String renders the log as newline-separated "[tag] text" lines, mainly
// for test failure output and Explain* diagnostics.
func (l Log) String() string {
	s := ""
	for i, e := range l {
		if i > 0 {
			s += "\n"
		}
		if e.Tag != "" {
			s += fmt.Sprintf("[%s] %s", e.Tag, e.Text)
		} else {
			s += e.Text
		}
	}
	return s
}
