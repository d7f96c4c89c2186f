package ai

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "plain object",
			input: `{"ok": true}`,
			want:  `{"ok": true}`,
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"ok\": true}\n```",
			want:  "{\"ok\": true}",
		},
		{
			name:  "fence without language",
			input: "```\n{\"ok\": true}\n```",
			want:  "{\"ok\": true}",
		},
		{
			name:  "prose around the object",
			input: `Sure, here is the result: {"ok": true} — let me know!`,
			want:  `{"ok": true}`,
		},
		{
			name:  "braces inside strings",
			input: `{"text": "a { tricky \" value }"}`,
			want:  `{"text": "a { tricky \" value }"}`,
		},
		{
			name:  "nested objects",
			input: `{"outer": {"inner": 1}}`,
			want:  `{"outer": {"inner": 1}}`,
		},
		{
			name:    "no object at all",
			input:   "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "unterminated object",
			input:   `{"ok": tru`,
			wantErr: true,
		},
		{
			name:    "balanced but invalid",
			input:   `{ok: yes}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				var parseErr *ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("expected *ParseError, got %T", err)
				}
				if parseErr.Raw == "" {
					t.Error("parse error must retain the raw text")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON() error: %v", err)
			}
			if string(raw) != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", raw, tt.want)
			}
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	t.Run("decodes wrapped object", func(t *testing.T) {
		var out struct {
			Count int `json:"count"`
		}
		err := DecodeResponse("the answer:\n```json\n{\"count\": 7}\n```", &out)
		if err != nil {
			t.Fatalf("DecodeResponse() error: %v", err)
		}
		if out.Count != 7 {
			t.Errorf("count = %d, want 7", out.Count)
		}
	})

	t.Run("shape mismatch keeps raw", func(t *testing.T) {
		var out struct {
			Count int `json:"count"`
		}
		input := `{"count": "seven"}`
		err := DecodeResponse(input, &out)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("expected *ParseError, got %v", err)
		}
		if parseErr.Raw != input {
			t.Errorf("raw = %q, want the full input", parseErr.Raw)
		}
	})
}
