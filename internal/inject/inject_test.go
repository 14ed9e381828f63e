package inject

import "testing"

func TestPasteModifier(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "cmd"},
		{"linux", "ctrl"},
		{"windows", "ctrl"},
	}
	for _, tt := range tests {
		if got := pasteModifier(tt.goos); got != tt.want {
			t.Errorf("pasteModifier(%q) = %q, want %q", tt.goos, got, tt.want)
		}
	}
}

func TestMethodDefaultsToType(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{"paste", "paste"},
		{"type", "type"},
		{"", "type"},
		{"bogus", "type"},
	}
	for _, tt := range tests {
		if got := NewInjector(tt.method).Method(); got != tt.want {
			t.Errorf("NewInjector(%q).Method() = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestInjectEmptyIsNoop(t *testing.T) {
	if err := NewInjector("paste").Inject(""); err != nil {
		t.Errorf("Inject(\"\") error = %v, want nil", err)
	}
}
