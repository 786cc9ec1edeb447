// Package main writes a self-signed certificate and key for running the
// development server over HTTPS. Point the server at them with --tls-cert
// and --tls-key, and the client with --ca-cert.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/atinyakov/SkillMap/internal/certgen"
)

func main() {
	dir := pflag.String("dir", "certs", "output directory")
	hosts := pflag.StringSlice("host", []string{"localhost", "127.0.0.1"}, "DNS names and IPs the certificate is valid for")
	validFor := pflag.Duration("valid-for", 365*24*time.Hour, "certificate lifetime")
	pflag.Parse()

	certPath, keyPath, err := writeCertAndKey(*dir, *hosts, *validFor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Certificate written to %s, key to %s\n", certPath, keyPath)
}

// writeCertAndKey generates a certificate for hosts and writes it to
// dir/server.crt and its key to dir/server.key, readable only by the owner.
func writeCertAndKey(dir string, hosts []string, validFor time.Duration) (string, string, error) {
	certPEM, keyPEM, err := certgen.GenerateSelfSigned(hosts, validFor)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create %s: %w", dir, err)
	}

	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")
	if err := os.WriteFile(certPath, certPEM, 0o644); err != nil {
		return "", "", fmt.Errorf("write cert: %w", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return "", "", fmt.Errorf("write key: %w", err)
	}
	return certPath, keyPath, nil
}
