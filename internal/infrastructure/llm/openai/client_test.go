package openai

import (
	"context"
	"testing"
	"time"
)

func TestNewWithoutKeyIsUnavailable(t *testing.T) {
	c := New("", "", 0, nil)
	if c.Available() {
		t.Fatal("client without api key must report unavailable")
	}
	if c.model != defaultModel {
		t.Fatalf("model default: %q", c.model)
	}
	if c.timeout != 60*time.Second {
		t.Fatalf("timeout default: %v", c.timeout)
	}

	if _, err := c.Complete(context.Background(), "prompt", "", 0, 10); err == nil {
		t.Fatal("expected error when no key is configured")
	}
}

func TestNilClientIsUnavailable(t *testing.T) {
	var c *Client
	if c.Available() {
		t.Fatal("nil client must report unavailable")
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"{\"a\": 1}", "{\"a\": 1}"},
		{"```json\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"```\n{\"a\": 1}\n```", "{\"a\": 1}"},
		{"  {\"a\": 1}  ", "{\"a\": 1}"},
	}
	for _, tc := range cases {
		if got := stripCodeFences(tc.in); got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{`Here is the data: {"a": 1} as requested.`, `{"a": 1}`},
		{`{"a": {"b": 2}}`, `{"a": {"b": 2}}`},
		{"no json here", ""},
		{"}{", ""},
	}
	for _, tc := range cases {
		if got := extractJSONObject(tc.in); got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("somewhat longer text", 8); got != "somewhat..." {
		t.Fatalf("got %q", got)
	}
}
