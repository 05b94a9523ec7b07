package parser

import "strings"

// EventKind tags a streaming event.
type EventKind int

const (
	// EventText carries a display-safe text delta.
	EventText EventKind = iota
	// EventToolCalls carries fully parsed tool calls. Emitted at most once
	// per response, only after the closing tag arrived.
	EventToolCalls
)

// Event is one incremental parsing result.
type Event struct {
	Kind     EventKind
	Text     string
	Thinking string
	Calls    []ToolCall
}

// Streaming accumulates chunks of a model response and emits display-safe
// events as soon as they can be decided. In turbo mode a tool tag latches the
// parser: once "<tool" has been seen no further text deltas are emitted, so a
// half-received tool call never leaks to the user. Finalize does the
// authoritative parse over the whole buffer.
type Streaming struct {
	buf          strings.Builder
	emitted      int
	turbo        bool
	toolDetected bool
	callsEmitted bool
}

// NewStreaming returns a chat-mode streaming parser.
func NewStreaming() *Streaming { return &Streaming{} }

// NewStreamingTurbo returns a parser that expects tool calls.
func NewStreamingTurbo() *Streaming { return &Streaming{turbo: true} }

// SetTurbo switches the parsing mode.
func (s *Streaming) SetTurbo(turbo bool) { s.turbo = turbo }

// ToolDetected reports whether a tool tag has been seen so far.
func (s *Streaming) ToolDetected() bool { return s.toolDetected }

// Buffer returns everything fed so far.
func (s *Streaming) Buffer() string { return s.buf.String() }

// Feed appends a chunk and returns any events it unlocked.
func (s *Streaming) Feed(chunk string) []Event {
	s.buf.WriteString(chunk)
	cleaned := Clean(s.buf.String())
	if s.turbo {
		return s.feedTurbo(cleaned)
	}
	return s.feedChat(cleaned)
}

func (s *Streaming) feedTurbo(cleaned string) []Event {
	var events []Event
	if strings.Contains(cleaned, "<tool") {
		s.toolDetected = true
	}
	switch {
	case strings.Contains(cleaned, "<tool>") && strings.Contains(cleaned, "</tool>"):
		if s.callsEmitted {
			return nil
		}
		calls, before := findToolCalls(cleaned)
		if len(calls) == 0 {
			return nil
		}
		if trimmed := strings.TrimSpace(before); trimmed != "" && s.emitted == 0 {
			events = append(events, Event{Kind: EventText, Text: trimmed})
		}
		events = append(events, Event{
			Kind:     EventToolCalls,
			Thinking: tagContent(s.buf.String(), "thinking"),
			Calls:    calls,
		})
		s.callsEmitted = true
		s.emitted = len(cleaned)
	case !s.toolDetected && !strings.Contains(cleaned, "<"):
		if delta := cleaned[min(s.emitted, len(cleaned)):]; delta != "" {
			events = append(events, Event{Kind: EventText, Text: delta})
			s.emitted = len(cleaned)
		}
	}
	// Anything else is a partial tag. Hold until more data arrives.
	return events
}

func (s *Streaming) feedChat(cleaned string) []Event {
	var events []Event
	switch {
	case strings.Contains(cleaned, "<message>") && strings.Contains(cleaned, "</message>"):
		content := tagContent(cleaned, "message")
		if s.emitted < len(content) {
			events = append(events, Event{Kind: EventText, Text: content[s.emitted:]})
			s.emitted = len(content)
		}
	case strings.Contains(cleaned, "<message>"):
		// Opening tag without its close. Wait.
	case !strings.Contains(cleaned, "<"):
		if s.emitted < len(cleaned) {
			events = append(events, Event{Kind: EventText, Text: cleaned[s.emitted:]})
			s.emitted = len(cleaned)
		}
	default:
		// Stray markup that is not a message wrapper. Strip and emit what
		// is new so chat output keeps flowing, holding back a trailing
		// tag that has not closed yet.
		stripped := stripKnownTags(cleaned)
		if i := strings.LastIndex(stripped, "<"); i >= 0 && !strings.Contains(stripped[i:], ">") {
			stripped = stripped[:i]
		}
		if s.emitted < len(stripped) {
			events = append(events, Event{Kind: EventText, Text: stripped[s.emitted:]})
			s.emitted = len(stripped)
		}
	}
	return events
}

// Finalize parses the full buffer. Call after the stream ends; the result is
// authoritative even when no events were emitted during streaming.
func (s *Streaming) Finalize() Result {
	return Parse(s.buf.String())
}

// Reset clears all state for the next response.
func (s *Streaming) Reset() {
	s.buf.Reset()
	s.emitted = 0
	s.toolDetected = false
	s.callsEmitted = false
}
