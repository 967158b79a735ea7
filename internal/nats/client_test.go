package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/portfolio-site/portfolio-api/pkg/logger"
)

func TestTLSConfigRequiresAllFiles(t *testing.T) {
	cfg, err := tlsConfig(Config{})
	if err != nil || cfg != nil {
		t.Fatalf("expected no TLS without files, got %v, %v", cfg, err)
	}

	partial := []Config{
		{CAFile: "ca.pem"},
		{CertFile: "cert.pem", KeyFile: "key.pem"},
	}
	for _, c := range partial {
		if _, err := tlsConfig(c); err == nil {
			t.Fatalf("expected error for partial TLS config %+v", c)
		}
	}
}

func TestTLSConfigMissingCAFile(t *testing.T) {
	_, err := tlsConfig(Config{CAFile: "/nonexistent/ca.pem", CertFile: "c", KeyFile: "k"})
	if err == nil {
		t.Fatal("expected error reading missing CA file")
	}
}

func TestConnectOptions(t *testing.T) {
	log := logger.NewNop()

	base, err := connectOptions(Config{URL: "nats://localhost:4222"}, log)
	if err != nil {
		t.Fatalf("connectOptions err: %v", err)
	}
	withToken, err := connectOptions(Config{URL: "nats://localhost:4222", Token: "s3cret"}, log)
	if err != nil {
		t.Fatalf("connectOptions err: %v", err)
	}
	if len(withToken) != len(base)+1 {
		t.Fatalf("token should add one option, got %d vs %d", len(withToken), len(base))
	}

	if _, err := connectOptions(Config{KeyFile: "key.pem"}, log); err == nil {
		t.Fatal("expected partial TLS config to fail")
	}
}

func TestPingWithoutConnection(t *testing.T) {
	c := &Client{logger: logger.NewNop()}
	if err := c.Ping(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	c.Close()
}
