package version

import "testing"

func TestStringReflectsOverride(t *testing.T) {
	if String() == "" {
		t.Fatalf("version string is empty")
	}
	old := Version
	defer func() { Version = old }()
	Version = "1.2.3"
	if String() != "1.2.3" {
		t.Fatalf("String() = %q, want linker override to win", String())
	}
}
