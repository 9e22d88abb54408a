package dbmigrate

import (
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/migrations"
)

func TestSelectTarget(t *testing.T) {
	all := &config.Config{
		DatabaseURLDirect: "postgres://direct",
		DatabaseURLRaw:    "postgres://url",
		DatabaseURLPooled: "postgres://pooled",
	}

	tests := []struct {
		name          string
		cfg           *config.Config
		requireDirect bool
		wantSource    string
		wantWarning   bool
		wantErr       error
	}{
		{"direct first", all, false, "DATABASE_URL_DIRECT", false, nil},
		{"database url next", &config.Config{DatabaseURLRaw: "postgres://url", DatabaseURLPooled: "postgres://pooled"}, false, "DATABASE_URL", false, nil},
		{"pooled warns", &config.Config{DatabaseURLPooled: "postgres://pooled"}, false, "DATABASE_URL_POOLED", true, nil},
		{"nothing configured", &config.Config{}, false, "", false, ErrNoDatabaseURL},
		{"startup uses direct", all, true, "DATABASE_URL_DIRECT", false, nil},
		{"startup without direct", &config.Config{DatabaseURLRaw: "postgres://url"}, true, "", false, ErrDirectURLRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := SelectTarget(tt.cfg, tt.requireDirect)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if target.Source != tt.wantSource {
				t.Errorf("expected source %q, got %q", tt.wantSource, target.Source)
			}
			if (target.Warning != "") != tt.wantWarning {
				t.Errorf("unexpected warning %q", target.Warning)
			}
		})
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	if err := Run("redo", Target{URL: "postgres://direct"}, nil); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
	if err := Run("up", Target{}, nil); !errors.Is(err, ErrNoDatabaseURL) {
		t.Errorf("expected ErrNoDatabaseURL, got %v", err)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	want := []string{"00001_meals.sql", "00002_diets.sql"}
	if len(files) != len(want) {
		t.Fatalf("expected %v, got %v", want, files)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, files[i])
		}
	}

	for _, name := range files {
		data, _ := fs.ReadFile(migrations.FS, name)
		if !strings.Contains(string(data), "-- +goose Up") || !strings.Contains(string(data), "-- +goose Down") {
			t.Errorf("%s: missing goose annotations", name)
		}
	}
}
