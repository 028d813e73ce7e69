package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestListenAndServe_NilHandler(t *testing.T) {
	err := ListenAndServeWithContext(context.Background(), 0, nil, TLSOptions{}, zap.NewNop())
	if err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestListenAndServe_ShutsDownOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- ListenAndServeWithContext(ctx, 0, okHandler(), TLSOptions{}, zap.NewNop())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServeWithContext() = %v, want nil after graceful shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}

func TestListenAndServe_TLSRequiresBothFiles(t *testing.T) {
	err := ListenAndServeWithContext(context.Background(), 0, okHandler(),
		TLSOptions{CertFile: "cert.pem"}, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "cert/key file not provided") {
		t.Fatalf("err = %v, want cert/key pairing error", err)
	}
}

func TestListenAndServe_TLSBadCertFails(t *testing.T) {
	err := ListenAndServeWithContext(context.Background(), 0, okHandler(),
		TLSOptions{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}, zap.NewNop())
	if err == nil || !strings.Contains(err.Error(), "load TLS cert/key") {
		t.Fatalf("err = %v, want TLS load error", err)
	}
}

func TestListenAndServe_TLSStartsWithValidCert(t *testing.T) {
	certFile, keyFile := writeSelfSignedCert(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ListenAndServeWithContext(ctx, 0, okHandler(),
			TLSOptions{CertFile: certFile, KeyFile: keyFile}, zap.NewNop())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListenAndServeWithContext() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("TLS server did not shut down after context cancellation")
	}
}

// writeSelfSignedCert generates a throwaway cert/key pair on disk.
func writeSelfSignedCert(t *testing.T) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	tmpl := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal key: %v", err)
	}

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(certFile, certPEM, 0o600); err != nil {
		t.Fatalf("write cert: %v", err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return certFile, keyFile
}
