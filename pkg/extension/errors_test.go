package extension

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestHostErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *HostError
		want []string
	}{
		{
			name: "class and message only",
			err:  NewScanError("manifest unreadable", nil),
			want: []string{"[scan]", "manifest unreadable"},
		},
		{
			name: "extension context",
			err:  NewLoadError("module trap", nil).WithExtension("weather"),
			want: []string{"[load]", "extension=weather"},
		},
		{
			name: "path and cause",
			err:  NewScanError("bad manifest", os.ErrPermission).WithPath("/plugins/x"),
			want: []string{"path=/plugins/x", os.ErrPermission.Error()},
		},
		{
			name: "extension and path",
			err: NewLoadError("entry missing", nil).
				WithExtension("weather").WithPath("dist/plugin.wasm"),
			want: []string{"extension=weather", "path=dist/plugin.wasm"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.want {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, missing %q", msg, want)
				}
			}
		})
	}
}

func TestHostErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"scan", NewScanError("m", nil), IsScan},
		{"load", NewLoadError("m", nil), IsLoad},
		{"conflict", NewConflictError("m", nil), IsConflict},
		{"resolution", NewResolutionError("m", nil), IsResolution},
		{"config", NewConfigError("m", nil), IsConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.err) {
				t.Errorf("classification check failed for %v", tt.err)
			}
			// Wrapping must not defeat classification.
			wrapped := fmt.Errorf("while loading: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("classification lost through wrapping: %v", wrapped)
			}
			if IsScan(tt.err) && tt.name != "scan" {
				t.Errorf("%v misclassified as scan", tt.err)
			}
		})
	}

	t.Run("plain errors are unclassified", func(t *testing.T) {
		if IsLoad(errors.New("plain")) {
			t.Error("plain error classified as load")
		}
		if IsLoad(nil) {
			t.Error("nil classified as load")
		}
	})
}

func TestHostErrorIs(t *testing.T) {
	err := NewLoadError("no export found", nil).
		WithCode(ErrCodeNoContract).WithExtension("weather")

	target := &HostError{Class: ErrorClassLoad, Code: ErrCodeNoContract}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match on class and code")
	}

	other := &HostError{Class: ErrorClassLoad, Code: ErrCodeBadUnit}
	if errors.Is(err, other) {
		t.Error("errors.Is matched a different code")
	}
}

func TestHostErrorUnwrap(t *testing.T) {
	cause := os.ErrNotExist
	err := NewLoadError("entry missing", cause).WithCode(ErrCodeFetch)
	if !errors.Is(err, os.ErrNotExist) {
		t.Error("underlying cause lost")
	}
}

func TestDescriptorDeclaresComponent(t *testing.T) {
	d := Descriptor{
		ID: "weather",
		Components: []ComponentDecl{
			{ID: "weather-panel", Kind: KindPanel},
			{ID: "weather-page", Kind: KindPage},
		},
	}

	if !d.DeclaresComponent(KindPanel, "weather-panel") {
		t.Error("declared panel not found")
	}
	if d.DeclaresComponent(KindPage, "weather-panel") {
		t.Error("kind must match, not just the ID")
	}
	if d.DeclaresComponent(KindPanel, "other") {
		t.Error("undeclared ID matched")
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range Kinds() {
		if !k.Valid() {
			t.Errorf("Kinds() returned invalid kind %q", k)
		}
	}
	if Kind("widget").Valid() {
		t.Error("unknown kind reported valid")
	}
}
