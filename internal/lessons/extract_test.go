package lessons

import (
	"encoding/json"
	"reflect"
	"testing"

	"lessonforge/internal/llm"
)

func TestExtractText_ChannelPriority(t *testing.T) {
	resp := &llm.Response{
		Content:   json.RawMessage(`{"a":1}`),
		Reasoning: "reasoning text",
		ToolArgs:  `{"b":2}`,
	}
	if got := ExtractText(resp); got != `{"a":1}` {
		t.Errorf("content channel should win, got %q", got)
	}

	resp.Content = nil
	if got := ExtractText(resp); got != "reasoning text" {
		t.Errorf("reasoning channel should be second, got %q", got)
	}

	resp.Reasoning = "  "
	if got := ExtractText(resp); got != `{"b":2}` {
		t.Errorf("tool args should be last, got %q", got)
	}
}

func TestExtractJSON_RoundTripWithNoise(t *testing.T) {
	obj := map[string]any{
		"title":   "Factoring",
		"count":   float64(3),
		"nested":  map[string]any{"brace": "a { b } c"},
		"choices": []any{"x", "y"},
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	wrappers := []struct {
		name string
		text string
	}{
		{"as-is", string(raw)},
		{"fenced", "```json\n" + string(raw) + "\n```"},
		{"fenced no tag", "```\n" + string(raw) + "\n```"},
		{"prose around", "Here is the lesson you asked for:\n" + string(raw) + "\nLet me know if you need more."},
		{"prose and fences", "Sure!\n```json\n" + string(raw) + "\n```\nEnjoy."},
	}

	for _, w := range wrappers {
		t.Run(w.name, func(t *testing.T) {
			got, err := ExtractJSON(w.text)
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			var back map[string]any
			if err := json.Unmarshal(got, &back); err != nil {
				t.Fatalf("unmarshal extracted: %v", err)
			}
			if !reflect.DeepEqual(back, obj) {
				t.Errorf("round trip mismatch:\n got %v\nwant %v", back, obj)
			}
		})
	}
}

func TestExtractJSON_DoubleEncoded(t *testing.T) {
	inner := `{"title":"Nested"}`
	outer, err := json.Marshal(inner)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := ExtractJSON(string(outer))
	if err != nil {
		t.Fatalf("extract double-encoded: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["title"] != "Nested" {
		t.Errorf("got %v", m)
	}
}

func TestExtractJSON_LaTeXRepair(t *testing.T) {
	// \( and \frac are under-escaped: invalid JSON until repaired.
	text := `{"content": "Solve \(x\) using \frac{1}{2} of the value."}`

	got, err := ExtractJSON(text)
	if err != nil {
		t.Fatalf("extract latex: %v", err)
	}
	var m map[string]string
	if err := json.Unmarshal(got, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := `Solve \(x\) using \frac{1}{2} of the value.`
	if m["content"] != want {
		t.Errorf("got %q, want %q", m["content"], want)
	}
}

func TestRepairLaTeXEscapes_MacroBoundary(t *testing.T) {
	// \times is a macro, \timestamp is not.
	if got := repairLaTeXEscapes(`a \times b`); got != `a \\times b` {
		t.Errorf("macro not doubled: %q", got)
	}
	if got := repairLaTeXEscapes(`a \timestamp b`); got != `a \timestamp b` {
		t.Errorf("non-macro altered: %q", got)
	}
	// Already escaped pairs stay untouched.
	if got := repairLaTeXEscapes(`a \\times b`); got != `a \\times b` {
		t.Errorf("escaped pair altered: %q", got)
	}
}

func TestExtractJSON_Failures(t *testing.T) {
	for _, text := range []string{"", "   ", "no json here", "[1, 2, 3]", `"just a plain string"`} {
		if _, err := ExtractJSON(text); err == nil {
			t.Errorf("expected error for %q", text)
		}
	}
}

func TestFirstBalancedObject_StringAware(t *testing.T) {
	s := `prefix {"a": "close } brace inside", "b": 1} suffix`
	got := firstBalancedObject(s)
	want := `{"a": "close } brace inside", "b": 1}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
