package parser

import "testing"

func TestParsePlainText(t *testing.T) {
	res := Parse("Hello, I can help you with that!")
	if res.HasTool() {
		t.Fatalf("unexpected tool calls: %v", res.Calls)
	}
	if res.Text != "Hello, I can help you with that!" {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestParseToolWithThinking(t *testing.T) {
	res := Parse("<thinking>I need to read the file</thinking>\n<tool>read_file</tool>\n<params><path>test.txt</path></params>")
	if len(res.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(res.Calls))
	}
	if res.Calls[0].Name != "read_file" {
		t.Fatalf("tool = %q", res.Calls[0].Name)
	}
	if res.Calls[0].Params["path"] != "test.txt" {
		t.Fatalf("path = %v", res.Calls[0].Params["path"])
	}
	if res.Thinking != "I need to read the file" {
		t.Fatalf("thinking = %q", res.Thinking)
	}
	if res.Text != "" {
		t.Fatalf("text = %q, want empty", res.Text)
	}
}

func TestParseTextBeforeTool(t *testing.T) {
	res := Parse("I'll read that file for you.\n<tool>read_file</tool>\n<params><path>package.json</path></params>")
	if len(res.Calls) != 1 {
		t.Fatalf("calls = %d", len(res.Calls))
	}
	if res.Text != "I'll read that file for you." {
		t.Fatalf("text = %q", res.Text)
	}
}

func TestParseMessageWrapper(t *testing.T) {
	for _, tag := range []string{"message", "response", "content", "output"} {
		res := Parse("<" + tag + ">Here is your answer!</" + tag + ">")
		if res.Text != "Here is your answer!" {
			t.Fatalf("tag %s: text = %q", tag, res.Text)
		}
	}
}

func TestCleanDisplay(t *testing.T) {
	raw := "<thinking>weighing options</thinking><message>Use a map here.</message>"
	if got := CleanDisplay(raw); got != "Use a map here." {
		t.Fatalf("display = %q", got)
	}
	if got := Thinking(raw); got != "weighing options" {
		t.Fatalf("thinking = %q", got)
	}
}

func TestParseCodeFences(t *testing.T) {
	res := Parse("```xml\n<tool>list_files</tool>\n<params><path>.</path></params>\n```")
	if len(res.Calls) != 1 || res.Calls[0].Name != "list_files" {
		t.Fatalf("calls = %v", res.Calls)
	}
}

func TestParamCoercion(t *testing.T) {
	res := Parse("<tool>replace_lines</tool><params><path>a.go</path><start_line>3</start_line><ratio>0.5</ratio></params>")
	if len(res.Calls) != 1 {
		t.Fatalf("calls = %d", len(res.Calls))
	}
	p := res.Calls[0].Params
	if v, ok := p["start_line"].(int64); !ok || v != 3 {
		t.Fatalf("start_line = %v (%T)", p["start_line"], p["start_line"])
	}
	if v, ok := p["ratio"].(float64); !ok || v != 0.5 {
		t.Fatalf("ratio = %v (%T)", p["ratio"], p["ratio"])
	}
	if p["path"] != "a.go" {
		t.Fatalf("path = %v", p["path"])
	}
}

func TestParseMultipleTools(t *testing.T) {
	raw := "<tool>read_file</tool><params><path>a.txt</path></params>" +
		"<tool>read_file</tool><params><path>b.txt</path></params>"
	res := Parse(raw)
	if len(res.Calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(res.Calls))
	}
	if res.Calls[0].Params["path"] != "a.txt" || res.Calls[1].Params["path"] != "b.txt" {
		t.Fatalf("params = %v", res.Calls)
	}
}

func TestParseEmptyToolNameSkipped(t *testing.T) {
	res := Parse("<tool>  </tool><params><path>x</path></params>")
	if res.HasTool() {
		t.Fatalf("blank tool name accepted: %v", res.Calls)
	}
}

func TestParseMissingParams(t *testing.T) {
	res := Parse("<tool>list_files</tool>")
	if len(res.Calls) != 1 {
		t.Fatalf("calls = %d", len(res.Calls))
	}
	if len(res.Calls[0].Params) != 0 {
		t.Fatalf("params = %v, want empty", res.Calls[0].Params)
	}
}

func TestStreamingTurboLatch(t *testing.T) {
	p := NewStreamingTurbo()
	if evs := p.Feed("Let me check"); len(evs) != 1 || evs[0].Kind != EventText {
		t.Fatalf("events = %v", evs)
	}
	// Once the tool tag opens, no text may leak.
	if evs := p.Feed(" that.\n<tool>read_fi"); len(evs) != 0 {
		t.Fatalf("leaked events after tool tag: %v", evs)
	}
	if !p.ToolDetected() {
		t.Fatal("tool not detected")
	}
	evs := p.Feed("le</tool><params><path>go.mod</path></params>")
	var calls []ToolCall
	for _, ev := range evs {
		if ev.Kind == EventToolCalls {
			calls = ev.Calls
		}
	}
	if len(calls) != 1 || calls[0].Name != "read_file" {
		t.Fatalf("calls = %v", calls)
	}
	// Further feeds must not re-emit the same call.
	if evs := p.Feed("\n"); len(evs) != 0 {
		t.Fatalf("duplicate events: %v", evs)
	}
}

func TestStreamingTurboHoldsPartialTag(t *testing.T) {
	p := NewStreamingTurbo()
	if evs := p.Feed("<too"); len(evs) != 0 {
		t.Fatalf("emitted on partial tag: %v", evs)
	}
}

func TestStreamingChatIncremental(t *testing.T) {
	p := NewStreaming()
	var text string
	for _, chunk := range []string{"<mess", "age>Hello", " world</message>"} {
		for _, ev := range p.Feed(chunk) {
			if ev.Kind == EventText {
				text += ev.Text
			}
		}
	}
	if text != "Hello world" {
		t.Fatalf("text = %q", text)
	}
}

func TestStreamingFinalize(t *testing.T) {
	p := NewStreamingTurbo()
	p.Feed("<thinking>check deps</thinking><tool>read_file</tool><params><path>go.mod</path></params>")
	res := p.Finalize()
	if len(res.Calls) != 1 || res.Calls[0].Name != "read_file" {
		t.Fatalf("finalize calls = %v", res.Calls)
	}
	if res.Thinking != "check deps" {
		t.Fatalf("thinking = %q", res.Thinking)
	}
	p.Reset()
	if p.Buffer() != "" || p.ToolDetected() {
		t.Fatal("reset did not clear state")
	}
}
