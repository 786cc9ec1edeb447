// Package config provides functionality for managing configuration options
// for the SkillMap client using command-line flags, environment variables,
// an optional JSON config file and a .env file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// Session backend identifiers.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options holds the configuration values for the client.
type Options struct {
	// APIURL is the backend base URL.
	APIURL string `json:"api_url"`

	// RequestTimeout bounds ordinary API calls.
	RequestTimeout time.Duration `json:"-"`

	// UploadTimeout bounds résumé upload and generation.
	UploadTimeout time.Duration `json:"-"`

	// MaxUploadBytes is the largest résumé accepted client-side.
	MaxUploadBytes int64 `json:"max_upload_bytes"`

	// SessionBackend selects where the session is persisted: file, sqlite or postgres.
	SessionBackend string `json:"session_backend"`

	// SessionPath is the session file for the file backend.
	SessionPath string `json:"session_path"`

	// SessionDSN is the data source for the sqlite and postgres backends.
	SessionDSN string `json:"session_dsn"`

	// Profile names the session row in SQL backends.
	Profile string `json:"profile"`

	// PollInterval is how often SQL backends are checked for external changes.
	PollInterval time.Duration `json:"-"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`

	// CACert is a PEM file of extra roots to trust for HTTPS, for a
	// development server with a self-signed certificate.
	CACert string `json:"ca_cert"`

	// Config is the path to the JSON config file.
	Config string `json:"-"`
}

// fileOptions mirrors Options for the JSON file, with durations as strings.
type fileOptions struct {
	*Options
	RequestTimeout string `json:"request_timeout"`
	UploadTimeout  string `json:"upload_timeout"`
	PollInterval   string `json:"poll_interval"`
}

// Default returns the built-in configuration.
func Default() *Options {
	return &Options{
		APIURL:         "http://localhost:8000",
		RequestTimeout: 120 * time.Second,
		UploadTimeout:  300 * time.Second,
		MaxUploadBytes: 10 << 20,
		SessionBackend: BackendFile,
		SessionPath:    defaultSessionPath(),
		Profile:        "default",
		PollInterval:   5 * time.Second,
		LogLevel:       "warn",
		Config:         "config.json",
	}
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "session.json"
	}
	return filepath.Join(dir, "skillmap", "session.json")
}

// Bind registers flags for every option on fs, using o's values as defaults.
func (o *Options) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.APIURL, "url", "u", o.APIURL, "backend base URL")
	fs.DurationVar(&o.RequestTimeout, "timeout", o.RequestTimeout, "timeout for ordinary requests")
	fs.DurationVar(&o.UploadTimeout, "upload-timeout", o.UploadTimeout, "timeout for résumé upload and generation")
	fs.Int64Var(&o.MaxUploadBytes, "max-upload-bytes", o.MaxUploadBytes, "largest résumé accepted")
	fs.StringVar(&o.SessionBackend, "session-backend", o.SessionBackend, "session store: file | sqlite | postgres")
	fs.StringVar(&o.SessionPath, "session-path", o.SessionPath, "session file (file backend)")
	fs.StringVar(&o.SessionDSN, "session-dsn", o.SessionDSN, "session database DSN (sqlite/postgres backends)")
	fs.StringVar(&o.Profile, "profile", o.Profile, "session profile name (sqlite/postgres backends)")
	fs.DurationVar(&o.PollInterval, "poll-interval", o.PollInterval, "external session change poll interval (sqlite/postgres backends)")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "log level: debug | info | warn | error")
	fs.StringVar(&o.CACert, "ca-cert", o.CACert, "PEM file of certificates to trust for HTTPS")
	fs.StringVarP(&o.Config, "config", "c", o.Config, "path to config file")
}

// Load resolves o in order: .env file, JSON config file, environment,
// then flags explicitly set on fs (fs may be nil).
func Load(o *Options, fs *pflag.FlagSet) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	explicit := map[string]string{}
	if fs != nil {
		fs.Visit(func(f *pflag.Flag) { explicit[f.Name] = f.Value.String() })
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" && explicit["config"] == "" {
		o.Config = configPath
	}
	if o.Config != "" {
		if err := o.loadFile(o.Config); err != nil {
			return err
		}
	}

	if err := o.loadEnv(); err != nil {
		return err
	}

	if fs != nil {
		for name, value := range explicit {
			if err := fs.Set(name, value); err != nil {
				return fmt.Errorf("reapply flag %s: %w", name, err)
			}
		}
	}

	return o.Validate()
}

func (o *Options) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	fo := fileOptions{Options: o}
	if err := json.Unmarshal(data, &fo); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	for _, d := range []struct {
		raw string
		dst *time.Duration
	}{
		{fo.RequestTimeout, &o.RequestTimeout},
		{fo.UploadTimeout, &o.UploadTimeout},
		{fo.PollInterval, &o.PollInterval},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("error while parsing config file: %w", err)
		}
		*d.dst = v
	}
	return nil
}

func (o *Options) loadEnv() error {
	strs := map[string]*string{
		"SKILLMAP_API_URL":         &o.APIURL,
		"SKILLMAP_SESSION_BACKEND": &o.SessionBackend,
		"SKILLMAP_SESSION_PATH":    &o.SessionPath,
		"SKILLMAP_SESSION_DSN":     &o.SessionDSN,
		"SKILLMAP_PROFILE":         &o.Profile,
		"SKILLMAP_LOG_LEVEL":       &o.LogLevel,
		"SKILLMAP_CA_CERT":         &o.CACert,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"SKILLMAP_TIMEOUT":        &o.RequestTimeout,
		"SKILLMAP_UPLOAD_TIMEOUT": &o.UploadTimeout,
		"SKILLMAP_POLL_INTERVAL":  &o.PollInterval,
	}
	for key, dst := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", key, err)
		}
		*dst = d
	}

	if v := os.Getenv("SKILLMAP_MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("parse SKILLMAP_MAX_UPLOAD_BYTES: %w", err)
		}
		o.MaxUploadBytes = n
	}
	return nil
}

// Validate reports inconsistent options.
func (o *Options) Validate() error {
	if o.APIURL == "" {
		return errors.New("api url is required")
	}
	if o.RequestTimeout <= 0 || o.UploadTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	switch o.SessionBackend {
	case BackendFile:
		if o.SessionPath == "" {
			return errors.New("session path is required for the file backend")
		}
	case BackendSQLite, BackendPostgres:
		if o.SessionDSN == "" {
			return fmt.Errorf("session dsn is required for the %s backend", o.SessionBackend)
		}
		if o.PollInterval <= 0 {
			return fmt.Errorf("poll interval must be positive for the %s backend", o.SessionBackend)
		}
	default:
		return fmt.Errorf("unknown session backend %q", o.SessionBackend)
	}
	return nil
}
