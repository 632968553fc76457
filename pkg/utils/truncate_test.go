package utils

import (
	"strings"
	"testing"
)

func TestChatTitle(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "short query untouched",
			query: "What is Go?",
			want:  "What is Go?",
		},
		{
			name:  "exactly thirty characters untouched",
			query: strings.Repeat("a", 30),
			want:  strings.Repeat("a", 30),
		},
		{
			name:  "long query gets marker",
			query: strings.Repeat("a", 31),
			want:  strings.Repeat("a", 30) + "...",
		},
		{
			name:  "multibyte runes counted as characters",
			query: strings.Repeat("é", 40),
			want:  strings.Repeat("é", 30) + "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChatTitle(tt.query); got != tt.want {
				t.Errorf("ChatTitle(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestCreatePreview(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "short query untouched",
			query: "hello",
			want:  "hello",
		},
		{
			name:  "long query capped without marker",
			query: strings.Repeat("b", 60),
			want:  strings.Repeat("b", 50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CreatePreview(tt.query); got != tt.want {
				t.Errorf("CreatePreview(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestMessagePreview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "short content still gets marker",
			content: "ok",
			want:    "ok...",
		},
		{
			name:    "long content capped with marker",
			content: strings.Repeat("c", 80),
			want:    strings.Repeat("c", 50) + "...",
		},
		{
			name:    "empty content",
			content: "",
			want:    "...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MessagePreview(tt.content); got != tt.want {
				t.Errorf("MessagePreview(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
