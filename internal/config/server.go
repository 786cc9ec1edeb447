package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// ServerOptions configures the development server.
type ServerOptions struct {
	// Addr is the listen address.
	Addr string
	// DBBackend is "sqlite" or "postgres".
	DBBackend string
	// DatabaseDSN is the data source for DBBackend.
	DatabaseDSN string
	// JWTSecret signs access tokens. A random secret is used when empty,
	// so tokens do not survive a restart.
	JWTSecret string
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration
	// MaxUploadBytes is the largest accepted résumé.
	MaxUploadBytes int64
	// LogLevel is the zap level name.
	LogLevel string
	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string
	TLSKey  string
}

// DefaultServer returns the built-in server configuration.
func DefaultServer() *ServerOptions {
	return &ServerOptions{
		Addr:           ":8000",
		DBBackend:      BackendSQLite,
		DatabaseDSN:    "skillmap.db",
		TokenTTL:       30 * time.Minute,
		MaxUploadBytes: 10 << 20,
		LogLevel:       "info",
	}
}

// Bind registers flags for every option on fs, using o's values as defaults.
func (o *ServerOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Addr, "addr", "a", o.Addr, "listen address")
	fs.StringVar(&o.DBBackend, "db", o.DBBackend, "database: sqlite | postgres")
	fs.StringVarP(&o.DatabaseDSN, "dsn", "d", o.DatabaseDSN, "database DSN")
	fs.StringVar(&o.JWTSecret, "jwt-secret", o.JWTSecret, "token signing secret (random when empty)")
	fs.DurationVar(&o.TokenTTL, "token-ttl", o.TokenTTL, "access token lifetime")
	fs.Int64Var(&o.MaxUploadBytes, "max-upload-bytes", o.MaxUploadBytes, "largest résumé accepted")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "log level: debug | info | warn | error")
	fs.StringVar(&o.TLSCert, "tls-cert", o.TLSCert, "TLS certificate PEM (enables HTTPS with --tls-key)")
	fs.StringVar(&o.TLSKey, "tls-key", o.TLSKey, "TLS private key PEM")
}

// LoadServer resolves o from the .env file and the environment, then
// flags explicitly set on fs (fs may be nil).
func LoadServer(o *ServerOptions, fs *pflag.FlagSet) error {
	// A missing .env is normal.
	_ = godotenv.Load()

	explicit := map[string]string{}
	if fs != nil {
		fs.Visit(func(f *pflag.Flag) { explicit[f.Name] = f.Value.String() })
	}

	for key, dst := range map[string]*string{
		"SKILLMAP_ADDR":       &o.Addr,
		"SKILLMAP_DB":         &o.DBBackend,
		"DATABASE_DSN":        &o.DatabaseDSN,
		"SKILLMAP_JWT_SECRET": &o.JWTSecret,
		"SKILLMAP_LOG_LEVEL":  &o.LogLevel,
		"SKILLMAP_TLS_CERT":   &o.TLSCert,
		"SKILLMAP_TLS_KEY":    &o.TLSKey,
	} {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	if v := os.Getenv("SKILLMAP_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse SKILLMAP_TOKEN_TTL: %w", err)
		}
		o.TokenTTL = d
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

// Validate reports inconsistent options.
func (o *ServerOptions) Validate() error {
	if o.Addr == "" {
		return errors.New("listen address is required")
	}
	if o.DBBackend != BackendSQLite && o.DBBackend != BackendPostgres {
		return fmt.Errorf("unknown database %q", o.DBBackend)
	}
	if o.DatabaseDSN == "" {
		return errors.New("database dsn is required")
	}
	if o.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if o.MaxUploadBytes <= 0 {
		return errors.New("max upload bytes must be positive")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("tls cert and key must be set together")
	}
	return nil
}
