package version

import "testing"

func TestString(t *testing.T) {
	v, c, d := Info()
	want := v + " (commit: " + c + ", built: " + d + ")"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
