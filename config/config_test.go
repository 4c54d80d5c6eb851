package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func newCommand(t *testing.T) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "mailbody"}
	RegisterPersistentFlags(cmd)
	if err := RegisterFlags(cmd); err != nil {
		t.Fatalf("RegisterFlags() error = %v", err)
	}
	return cmd
}

func load(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	cmd := newCommand(t)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v) error = %v", args, err)
	}
	return LoadConfig(cmd)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("IMAP_PASS", "")
	t.Setenv("REDIS_PASSWORD", "")
	stateDir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr string
		check   func(t *testing.T, cfg Config)
	}{
		{
			name: "mbox defaults",
			args: []string{"--mbox", "mail.mbox", "--state-dir", stateDir},
			check: func(t *testing.T, cfg Config) {
				if cfg.Format != FormatJSONL || cfg.Output != "-" || cfg.Workers < 1 {
					t.Errorf("unexpected defaults: %+v", cfg)
				}
				if !cfg.CheckSignature || cfg.CheckReplyText || cfg.RemovePhrase {
					t.Errorf("extraction defaults = %+v", cfg.BodyOptions())
				}
			},
		},
		{name: "no source", args: []string{"--state-dir", stateDir}, wantErr: "one of --mbox or --imap-host"},
		{name: "two sources", args: []string{"--mbox", "a", "--imap-host", "h", "--state-dir", stateDir}, wantErr: "mutually exclusive"},
		{name: "imap without user", args: []string{"--imap-host", "h", "--state-dir", stateDir}, wantErr: "--imap-user"},
		{name: "imap without password", args: []string{"--imap-host", "h", "--imap-user", "u", "--state-dir", stateDir}, wantErr: "IMAP password"},
		{name: "imap bad port", args: []string{"--imap-host", "h", "--imap-user", "u", "--imap-pass", "p", "--imap-port", "0", "--state-dir", stateDir}, wantErr: "--imap-port"},
		{name: "sqlite needs path", args: []string{"--mbox", "a", "--format", "sqlite", "--state-dir", stateDir}, wantErr: "database path"},
		{name: "unknown format", args: []string{"--mbox", "a", "--format", "xml", "--state-dir", stateDir}, wantErr: "invalid --format"},
		{name: "zero workers", args: []string{"--mbox", "a", "--workers", "0", "--state-dir", stateDir}, wantErr: "--workers"},
		{name: "include and exclude", args: []string{"--mbox", "a", "--include-body", "x", "--exclude-header", "y", "--state-dir", stateDir}, wantErr: "mutually exclusive"},
		{name: "bad log level", args: []string{"--mbox", "a", "--log-level", "loud", "--state-dir", stateDir}, wantErr: "invalid --log-level"},
		{
			name: "warning level alias and extraction flags",
			args: []string{"--mbox", "a", "--log-level", "WARNING", "--check-reply-text", "--remove-phrase", "--sender", "bob@x", "--state-dir", stateDir},
			check: func(t *testing.T, cfg Config) {
				if cfg.LogLevel != "warn" {
					t.Errorf("LogLevel = %q", cfg.LogLevel)
				}
				opts := cfg.BodyOptions()
				if !opts.CheckReplyText || !opts.RemovePhrase || opts.Sender != "bob@x" {
					t.Errorf("BodyOptions() = %+v", opts)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load(t, tt.args...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("LoadConfig() error = %v, want it to mention %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadConfig_PasswordsFromEnv(t *testing.T) {
	t.Setenv("IMAP_PASS", "from-env")
	t.Setenv("REDIS_PASSWORD", "redis-env")

	cfg, err := load(t, "--imap-host", "mail.example.com", "--imap-user", "u", "--format", "redis", "--state-dir", t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.IMAPPass != "from-env" || cfg.RedisPassword != "redis-env" {
		t.Errorf("passwords = %q / %q", cfg.IMAPPass, cfg.RedisPassword)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mailbody.yaml")
	yamlText := "mbox: archive.mbox\n" +
		"format: csv\n" +
		"workers: 3\n" +
		"check-salutation: true\n" +
		"exclude-header:\n  - 'List-Id:'\n  - 'Precedence: bulk'\n" +
		"state-dir: " + filepath.Join(dir, "state") + "\n"
	if err := os.WriteFile(path, []byte(yamlText), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(t, "--config", path, "--format", "jsonl")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.MboxPath != "archive.mbox" || cfg.Workers != 3 || !cfg.CheckSalutation {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Format != FormatJSONL {
		t.Errorf("Format = %q, command line should win over the file", cfg.Format)
	}
	if want := []string{"List-Id:", "Precedence: bulk"}; !reflect.DeepEqual(cfg.ExcludeHeader, want) {
		t.Errorf("ExcludeHeader = %q, want %q", cfg.ExcludeHeader, want)
	}
}

func TestLoadConfig_FileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("mbox: a\ncolour: blue\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := load(t, "--config", path); err == nil || !strings.Contains(err.Error(), "colour") {
		t.Errorf("LoadConfig() error = %v, want unknown option", err)
	}
}

func TestLoadLogConfig(t *testing.T) {
	cmd := &cobra.Command{Use: "body"}
	RegisterPersistentFlags(cmd)
	if err := cmd.ParseFlags([]string{"--log-level", "debug", "--log-dir", "logs"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadLogConfig(cmd)
	if err != nil {
		t.Fatalf("LoadLogConfig() error = %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.LogDir != "logs" {
		t.Errorf("LoadLogConfig() = %+v", cfg)
	}
}

func TestLoadLogConfig_SharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailbody.yaml")
	if err := os.WriteFile(path, []byte("mbox: archive.mbox\nlog-level: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{Use: "split"}
	RegisterPersistentFlags(cmd)
	if err := cmd.ParseFlags([]string{"--config", path}); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadLogConfig(cmd)
	if err != nil {
		t.Fatalf("LoadLogConfig() error = %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn from the file", cfg.LogLevel)
	}
}
