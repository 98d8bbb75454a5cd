package storage

import (
	"testing"

	"github.com/google/uuid"
)

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("abcdef12-0000-0000-0000-000000000000")

	tests := []struct {
		folder, name, want string
	}{
		{folder: "quotes/2026", name: "quote.pdf", want: "quotes/2026/quote_abcdef12.pdf"},
		{folder: "/quotes/", name: "../../etc/passwd", want: "quotes/passwd_abcdef12"},
		{folder: "quotes", name: "", want: "quotes/file_abcdef12"},
	}
	for _, tt := range tests {
		if got := ObjectKey(tt.folder, tt.name, id); got != tt.want {
			t.Errorf("ObjectKey(%q, %q) = %q, want %q", tt.folder, tt.name, got, tt.want)
		}
	}
}

func TestValidation(t *testing.T) {
	if err := ValidateContentType("application/pdf; charset=binary"); err != nil {
		t.Fatalf("pdf should be allowed: %v", err)
	}
	if err := ValidateContentType("image/png"); err == nil {
		t.Fatalf("png should be rejected")
	}
	if err := ValidateFileSize(0); err == nil {
		t.Fatalf("empty upload should be rejected")
	}
	if err := ValidateFileSize(MaxObjectSize + 1); err == nil {
		t.Fatalf("oversized upload should be rejected")
	}
}
