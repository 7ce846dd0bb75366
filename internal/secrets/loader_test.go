package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	keyFile := filepath.Join(dir, "key")
	if err := os.WriteFile(keyFile, []byte("  from-file\n"), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	emptyFile := filepath.Join(dir, "empty")
	if err := os.WriteFile(emptyFile, []byte("\n"), 0o600); err != nil {
		t.Fatalf("write empty file: %v", err)
	}

	t.Setenv("SKILLMATCH_TEST_SECRET", " from-env ")

	tests := []struct {
		name    string
		src     Source
		want    string
		wantErr string
	}{
		{name: "file wins", src: Source{File: keyFile, Env: "SKILLMATCH_TEST_SECRET", Value: "inline"}, want: "from-file"},
		{name: "env beats value", src: Source{Env: "SKILLMATCH_TEST_SECRET", Value: "inline"}, want: "from-env"},
		{name: "value", src: Source{Env: "SKILLMATCH_TEST_UNSET", Value: " inline "}, want: "inline"},
		{name: "missing file", src: Source{Name: "api key", File: filepath.Join(dir, "nope")}, wantErr: "reading api key from file"},
		{name: "empty file", src: Source{Name: "api key", File: emptyFile, Value: "inline"}, wantErr: "is empty"},
		{name: "nothing configured", src: Source{Name: "api key", Env: "SKILLMATCH_TEST_UNSET"}, wantErr: "set SKILLMATCH_TEST_UNSET"},
		{name: "default name", src: Source{}, wantErr: "secret is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
