package app

import (
	"bytes"
	"context"
	"testing"
)

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	isolate(t)

	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Fatal("Config() returned nil")
	}
	if app.Config().Join != "left" {
		t.Errorf("Config().Join = %s, want left", app.Config().Join)
	}
}

// TestApp_WithViper verifies a nil configuration source is rejected.
func TestApp_WithViper(t *testing.T) {
	isolate(t)

	if _, err := New("1.0.0", "", "", "", WithViper(nil)); err == nil {
		t.Error("New() with nil viper succeeded, want error")
	}
}

// TestVersionCommand verifies version output, with build details under -v.
func TestVersionCommand(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		want string
		more bool
	}{
		{"plain", []string{"version"}, "genemap 1.0.0\n", false},
		{"verbose", []string{"version", "-v"}, "genemap 1.0.0\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			app, err := New("1.0.0", "abc123", "2024-01-01", "test", WithOutput(&out))
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			if err := app.Execute(context.Background(), tt.args); err != nil {
				t.Fatalf("Execute() failed: %v", err)
			}

			got := out.String()
			if tt.more {
				if !bytes.Contains(out.Bytes(), []byte("commit:   abc123")) {
					t.Errorf("output %q lacks commit", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestValidateLogLevel verifies that invalid log levels fall back to info.
func TestValidateLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{"error", "error"},
		{"", ""},
		{"loud", "info"},
	}
	for _, tt := range tests {
		if got := validateLogLevel(tt.in); got != tt.want {
			t.Errorf("validateLogLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
