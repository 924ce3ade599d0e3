package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.HTTPAddr != ":8080" || c.ActivitySink != SinkPostgres || c.EventBuffer != 100 {
		t.Fatalf("defaults=%+v", c)
	}
	if c.ReminderInterval != time.Hour || c.DeliveryTimeout != 30*time.Second {
		t.Fatalf("durations=%v %v", c.ReminderInterval, c.DeliveryTimeout)
	}
	if c.SlogLevel() != slog.LevelInfo {
		t.Fatalf("level=%v", c.SlogLevel())
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ACASINHA_HTTP_ADDR", ":9090")
	t.Setenv("ACASINHA_REMINDER_INTERVAL", "5m")
	t.Setenv("ACASINHA_ACTIVITY_SINK", "SQLite")
	t.Setenv("ACASINHA_LOG_LEVEL", "debug")

	c, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if c.HTTPAddr != ":9090" || c.ReminderInterval != 5*time.Minute {
		t.Fatalf("config=%+v", c)
	}
	if c.ActivitySink != SinkSQLite {
		t.Fatalf("sink=%q want=%q", c.ActivitySink, SinkSQLite)
	}
	if c.SlogLevel() != slog.LevelDebug {
		t.Fatalf("level=%v", c.SlogLevel())
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "office.yaml")
	body := "http_addr: \":7070\"\nevent_buffer: 8\ndelivery_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.HTTPAddr != ":7070" || c.EventBuffer != 8 || c.DeliveryTimeout != 2*time.Second {
		t.Fatalf("config=%+v", c)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("want error for a missing config file")
	}
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown sink":          {"ACASINHA_ACTIVITY_SINK": "mongo"},
		"token without channel": {"ACASINHA_DISCORD_BOT_TOKEN": "abc"},
		"empty event buffer":    {"ACASINHA_EVENT_BUFFER": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			chdir(t, t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Fatal("want validation error")
			}
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
