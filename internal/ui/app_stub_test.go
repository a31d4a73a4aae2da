//go:build !fyne

package ui

import (
	"strings"
	"testing"
)

func TestRunStub_NamesTheBuildTag(t *testing.T) {
	err := Run("")
	if err == nil {
		t.Fatal("expected error from Run() in a headless build, got nil")
	}
	if msg := err.Error(); !strings.Contains(msg, "-tags fyne") {
		t.Fatalf("error should point at the fyne build tag, got %q", msg)
	}
}
