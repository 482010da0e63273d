package utils

import (
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:      "empty path",
			input:     "",
			wantError: true,
		},
		{
			name:      "relative path",
			input:     "./watch",
			wantError: false,
		},
		{
			name:      "absolute path",
			input:     "/tmp/watch",
			wantError: false,
		},
		{
			name:      "home path",
			input:     "~/watch",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolvePath(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ResolvePath(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
			if !tt.wantError && !filepath.IsAbs(result) {
				t.Errorf("ResolvePath(%q) = %q, want absolute path", tt.input, result)
			}
		})
	}
}
