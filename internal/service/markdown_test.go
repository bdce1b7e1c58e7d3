package service

import (
	"strings"
	"testing"
)

func TestBalanceCollapsibleTags(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantDetails int
		wantSummary int
	}{
		{
			name:        "two opens one close",
			input:       "<details><summary>a</summary>x</details><details><summary>b</summary>y",
			wantDetails: 1,
			wantSummary: 0,
		},
		{
			name:        "truncated mid summary",
			input:       "<details><summary>evidence",
			wantDetails: 1,
			wantSummary: 1,
		},
		{
			name:        "already balanced",
			input:       "<details><summary>a</summary>body</details>",
			wantDetails: 0,
			wantSummary: 0,
		},
		{
			name:        "no tags",
			input:       "plain text",
			wantDetails: 0,
			wantSummary: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := BalanceCollapsibleTags(tt.input)
			appended := out[len(tt.input):]
			if got := strings.Count(appended, "</details>"); got != tt.wantDetails {
				t.Errorf("appended %d </details>, want %d", got, tt.wantDetails)
			}
			if got := strings.Count(appended, "</summary>"); got != tt.wantSummary {
				t.Errorf("appended %d </summary>, want %d", got, tt.wantSummary)
			}
			balanced := BalanceCollapsibleTags(out)
			if balanced != out {
				t.Error("balancing must be idempotent")
			}
		})
	}
}

func TestBalanceCollapsibleTags_ClosesSummaryBeforeDetails(t *testing.T) {
	out := BalanceCollapsibleTags("<details><summary>evidence")
	sumIdx := strings.Index(out, "</summary>")
	detIdx := strings.Index(out, "</details>")
	if sumIdx < 0 || detIdx < 0 || sumIdx > detIdx {
		t.Fatalf("closing tags out of nesting order: %q", out)
	}
}

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("**bold** and <details><summary>s</summary>x</details>")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(html, "<strong>bold</strong>") {
		t.Fatalf("markdown not rendered: %q", html)
	}
	// Raw collapsible blocks must survive rendering.
	if !strings.Contains(html, "<details>") {
		t.Fatalf("details block stripped: %q", html)
	}
}
