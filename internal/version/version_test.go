package version

import "testing"

func TestString(t *testing.T) {
	if got := String(); got != "dev (unknown, unknown)" {
		t.Errorf("String() = %q", got)
	}
	if IsRelease() {
		t.Error("unstamped build reported as release")
	}

	old := Version
	t.Cleanup(func() { Version = old })
	Version = "v0.3.0"
	if !IsRelease() {
		t.Error("stamped build not reported as release")
	}
}
