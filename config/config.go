package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/dhcgn/mailbody/parser"
)

// Output formats accepted by --format.
const (
	FormatJSONL  = "jsonl"
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
	FormatRedis  = "redis"
)

// Config captures all options of an extraction run.
type Config struct {
	MboxPath           string
	IMAPHost           string
	IMAPPort           int
	IMAPUser           string
	IMAPPass           string
	UseTLS             bool
	InsecureSkipVerify bool
	Folder             string

	Output        string
	Format        string
	RedisAddr     string
	RedisKey      string
	RedisPassword string

	CheckReplyText  bool
	CheckSalutation bool
	CheckSignature  bool
	RemovePhrase    bool
	Sender          string

	Workers       int
	StateDir      string
	DryRun        bool
	LogLevel      string
	LogDir        string
	IncludeHeader []string
	IncludeBody   []string
	ExcludeHeader []string
	ExcludeBody   []string
}

// BodyOptions maps the extraction flags onto the parser's options.
func (c Config) BodyOptions() parser.BodyOptions {
	return parser.BodyOptions{
		CheckReplyText:  c.CheckReplyText,
		CheckSalutation: c.CheckSalutation,
		CheckSignature:  c.CheckSignature,
		RemovePhrase:    c.RemovePhrase,
		Sender:          c.Sender,
	}
}

// RegisterPersistentFlags adds the flags every subcommand shares.
func RegisterPersistentFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "YAML file with defaults for any flag not given on the command line")
	flags.String("log-level", "info", "Logging level: debug, info, warn, error")
	flags.String("log-dir", "", "Also write logs to a timestamped file in this directory")
}

// RegisterExtractionFlags adds the body-cleaning switches to flags.
func RegisterExtractionFlags(flags *pflag.FlagSet) {
	defaults := parser.DefaultBodyOptions()
	flags.Bool("check-reply-text", defaults.CheckReplyText, "Keep only the newest message above the first reply/forward header")
	flags.Bool("check-salutation", defaults.CheckSalutation, "Strip the leading greeting")
	flags.Bool("check-signature", defaults.CheckSignature, "Strip the trailing signature")
	flags.Bool("remove-phrase", defaults.RemovePhrase, "Also strip the sign-off line (\"Best regards,\")")
	flags.String("sender", "", "Sender name or address handed to the signature classifier")
}

// RegisterFlags attaches all pipeline flags to the provided command.
func RegisterFlags(cmd *cobra.Command) error {
	defaultStateDir, err := defaultStateDir()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	flags.String("mbox", "", "Path to the .mbox file to read (mutually exclusive with --imap-host)")
	flags.String("imap-host", "", "IMAP server hostname to read from")
	flags.Int("imap-port", 993, "IMAP server port")
	flags.String("imap-user", "", "IMAP username")
	flags.String("imap-pass", "", "IMAP password (falls back to IMAP_PASS env var)")
	flags.Bool("use-tls", true, "Use TLS for the IMAP connection")
	flags.Bool("insecure-skip-verify", false, "Skip TLS certificate verification (not recommended)")
	flags.String("folder", "INBOX", "IMAP folder to read")

	flags.StringP("output", "o", "-", "Output file, SQLite database path, or - for stdout")
	flags.String("format", FormatJSONL, "Output format: jsonl, csv, sqlite, redis")
	flags.String("redis-addr", "localhost:6379", "Redis address for --format redis")
	flags.String("redis-key", "mailbody:results", "Redis list receiving the results")
	flags.String("redis-password", "", "Redis password (falls back to REDIS_PASSWORD env var)")

	RegisterExtractionFlags(flags)

	flags.Int("workers", runtime.NumCPU(), "Number of concurrent extraction workers")
	flags.String("state-dir", defaultStateDir, "Directory for incremental run state")
	flags.Bool("dry-run", false, "Extract and report stats without writing results or state")
	flags.StringArray("include-header", nil, "Regex allow-list applied to message headers (mutually exclusive with exclude flags)")
	flags.StringArray("include-body", nil, "Regex allow-list applied to message bodies (mutually exclusive with exclude flags)")
	flags.StringArray("exclude-header", nil, "Regex block-list applied to message headers (mutually exclusive with include flags)")
	flags.StringArray("exclude-body", nil, "Regex block-list applied to message bodies (mutually exclusive with include flags)")

	return nil
}

// LoadConfig converts the parsed Cobra flags into a Config struct with
// validation. Values from --config fill in flags left at their defaults.
func LoadConfig(cmd *cobra.Command) (Config, error) {
	if err := applyConfigFile(cmd, true); err != nil {
		return Config{}, err
	}

	flags := cmd.Flags()
	r := flagReader{flags: flags}
	cfg := Config{
		MboxPath:           r.getString("mbox"),
		IMAPHost:           r.getString("imap-host"),
		IMAPPort:           r.getInt("imap-port"),
		IMAPUser:           r.getString("imap-user"),
		IMAPPass:           r.getString("imap-pass"),
		UseTLS:             r.getBool("use-tls"),
		InsecureSkipVerify: r.getBool("insecure-skip-verify"),
		Folder:             r.getString("folder"),
		Output:             r.getString("output"),
		Format:             strings.ToLower(r.getString("format")),
		RedisAddr:          r.getString("redis-addr"),
		RedisKey:           r.getString("redis-key"),
		RedisPassword:      r.getString("redis-password"),
		CheckReplyText:     r.getBool("check-reply-text"),
		CheckSalutation:    r.getBool("check-salutation"),
		CheckSignature:     r.getBool("check-signature"),
		RemovePhrase:       r.getBool("remove-phrase"),
		Sender:             r.getString("sender"),
		Workers:            r.getInt("workers"),
		StateDir:           r.getString("state-dir"),
		DryRun:             r.getBool("dry-run"),
		LogLevel:           r.getString("log-level"),
		LogDir:             r.getString("log-dir"),
		IncludeHeader:      r.getStringArray("include-header"),
		IncludeBody:        r.getStringArray("include-body"),
		ExcludeHeader:      r.getStringArray("exclude-header"),
		ExcludeBody:        r.getStringArray("exclude-body"),
	}
	if r.err != nil {
		return Config{}, r.err
	}

	if cfg.IMAPPass == "" {
		cfg.IMAPPass = os.Getenv("IMAP_PASS")
	}
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}
	if cfg.StateDir == "" {
		dir, err := defaultStateDir()
		if err != nil {
			return Config{}, err
		}
		cfg.StateDir = dir
	}
	cfg.StateDir = filepath.Clean(cfg.StateDir)
	cfg.LogLevel = normalizeLevel(cfg.LogLevel)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadLogConfig reads only the shared logging flags, for subcommands that
// do not run the pipeline.
func LoadLogConfig(cmd *cobra.Command) (Config, error) {
	if err := applyConfigFile(cmd, false); err != nil {
		return Config{}, err
	}
	r := flagReader{flags: cmd.Flags()}
	cfg := Config{
		LogLevel: normalizeLevel(r.getString("log-level")),
		LogDir:   r.getString("log-dir"),
	}
	if r.err != nil {
		return Config{}, r.err
	}
	if err := validateLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyConfigFile sets every flag named in the YAML file that was not given
// on the command line. Keys are flag names; lists fill array flags. With
// strict off, keys the command has no flag for are skipped so subcommands
// can share the pipeline's file.
func applyConfigFile(cmd *cobra.Command, strict bool) error {
	flags := cmd.Flags()
	path, err := flags.GetString("config")
	if err != nil || path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	for name, value := range values {
		flag := flags.Lookup(name)
		if flag == nil {
			if !strict {
				continue
			}
			return fmt.Errorf("config file %s: unknown option %q", path, name)
		}
		if flag.Changed || name == "config" {
			continue
		}
		items, isList := value.([]any)
		if !isList {
			items = []any{value}
		}
		for _, item := range items {
			if err := flags.Set(name, fmt.Sprint(item)); err != nil {
				return fmt.Errorf("config file %s: option %q: %w", path, name, err)
			}
		}
	}
	return nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.MboxPath == "" && cfg.IMAPHost == "":
		return fmt.Errorf("one of --mbox or --imap-host is required")
	case cfg.MboxPath != "" && cfg.IMAPHost != "":
		return fmt.Errorf("--mbox and --imap-host are mutually exclusive")
	}

	if cfg.IMAPHost != "" {
		if cfg.IMAPUser == "" {
			return fmt.Errorf("--imap-user is required with --imap-host")
		}
		if cfg.IMAPPass == "" {
			return fmt.Errorf("IMAP password must be provided via --imap-pass or IMAP_PASS env var")
		}
		if cfg.IMAPPort <= 0 || cfg.IMAPPort > 65535 {
			return fmt.Errorf("--imap-port must be between 1 and 65535")
		}
	}

	switch cfg.Format {
	case FormatJSONL, FormatCSV:
	case FormatSQLite:
		if cfg.Output == "" || cfg.Output == "-" {
			return fmt.Errorf("--format sqlite needs a database path in --output")
		}
	case FormatRedis:
		if cfg.RedisAddr == "" || cfg.RedisKey == "" {
			return fmt.Errorf("--format redis needs --redis-addr and --redis-key")
		}
	default:
		return fmt.Errorf("invalid --format: %s", cfg.Format)
	}

	if cfg.Workers < 1 {
		return fmt.Errorf("--workers must be at least 1")
	}

	includeActive := len(cfg.IncludeHeader) > 0 || len(cfg.IncludeBody) > 0
	excludeActive := len(cfg.ExcludeHeader) > 0 || len(cfg.ExcludeBody) > 0
	if includeActive && excludeActive {
		return fmt.Errorf("include and exclude flags are mutually exclusive")
	}

	return validateLevel(cfg.LogLevel)
}

func validateLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid --log-level: %s", level)
	}
}

func normalizeLevel(level string) string {
	level = strings.ToLower(level)
	if level == "warning" {
		return "warn"
	}
	return level
}

func defaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mailbody", "state"), nil
}

// flagReader keeps the first lookup error so LoadConfig reads as a list.
type flagReader struct {
	flags *pflag.FlagSet
	err   error
}

func (r *flagReader) getString(name string) string {
	v, err := r.flags.GetString(name)
	r.keep(err)
	return v
}

func (r *flagReader) getInt(name string) int {
	v, err := r.flags.GetInt(name)
	r.keep(err)
	return v
}

func (r *flagReader) getBool(name string) bool {
	v, err := r.flags.GetBool(name)
	r.keep(err)
	return v
}

func (r *flagReader) getStringArray(name string) []string {
	v, err := r.flags.GetStringArray(name)
	r.keep(err)
	return v
}

func (r *flagReader) keep(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}
