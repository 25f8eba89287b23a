package main

import (
	"strings"
	"testing"

	"github.com/dgnsrekt/prosodic-go/internal/emotion"
)

func TestReadText(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		want    string
		wantErr bool
	}{
		{"args", []string{"नमस्कार,", "कसे", "आहात?"}, "ignored", "नमस्कार, कसे आहात?", false},
		{"stdin", nil, "  काय झालं!\n", "काय झालं!", false},
		{"empty", nil, " \n", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readText(tt.args, strings.NewReader(tt.stdin))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKeys(t *testing.T) {
	got := keys(emotion.All())
	if !strings.HasPrefix(got, "neutral, ") || !strings.Contains(got, "punctuation") {
		t.Errorf("keys = %q", got)
	}
}
