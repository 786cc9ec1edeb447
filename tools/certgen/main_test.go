package main

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atinyakov/SkillMap/internal/certgen"
)

func TestWriteCertAndKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")
	certPath, keyPath, err := writeCertAndKey(dir, []string{"localhost"}, time.Hour)
	if err != nil {
		t.Fatalf("writeCertAndKey: %v", err)
	}

	if _, err := tls.LoadX509KeyPair(certPath, keyPath); err != nil {
		t.Errorf("written files are not a valid key pair: %v", err)
	}
	if _, err := certgen.LoadCertPool(certPath); err != nil {
		t.Errorf("certificate cannot be trusted as a root: %v", err)
	}

	info, err := os.Stat(keyPath)
	if err != nil {
		t.Fatalf("stat key: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("key permissions = %o; want 600", perm)
	}
}

func TestWriteCertAndKey_NoHosts(t *testing.T) {
	if _, _, err := writeCertAndKey(t.TempDir(), nil, time.Hour); err == nil {
		t.Fatal("expected error for empty host list")
	}
}
