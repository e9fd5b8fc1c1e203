package models

import (
	"strings"
	"testing"
)

func TestNodeDraftValidate(t *testing.T) {
	tests := []struct {
		name    string
		draft   NodeDraft
		wantErr bool
	}{
		{"ok", NodeDraft{Title: "Start", Text: "Once upon a time"}, false},
		{"empty text", NodeDraft{Title: "Start"}, false},
		{"empty title", NodeDraft{Text: "x"}, true},
		{"blank title", NodeDraft{Title: "   "}, true},
		{"text at limit", NodeDraft{Title: "t", Text: strings.Repeat("ж", MaxTextLength)}, false},
		{"text too long", NodeDraft{Title: "t", Text: strings.Repeat("a", MaxTextLength+1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChoice(t *testing.T) {
	if err := ValidateChoice("go left"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	for _, c := range []string{"", " \t"} {
		if err := ValidateChoice(c); err == nil {
			t.Errorf("ValidateChoice(%q) should fail", c)
		}
	}
}
