package config

import (
	"strings"
	"testing"
)

func TestValidateConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	if err := ValidateConfig(cfg); err != nil {
		t.Fatalf("expected default config to be valid, got error: %v", err)
	}
}

func TestValidateConfigRejectsBadBatchSize(t *testing.T) {
	cfg := LoadConfig()
	cfg.HTTPBatchSize = 0

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatal("expected validation error for zero batch size")
	}
	if !strings.Contains(err.Error(), "SKEWSENTRY_HTTP_BATCH_SIZE") {
		t.Fatalf("expected SKEWSENTRY_HTTP_BATCH_SIZE in error, got: %v", err)
	}
}

func TestValidateConfigRejectsBadPort(t *testing.T) {
	cfg := LoadConfig()
	cfg.DevserverPort = "not-a-port"

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatal("expected validation error for non-numeric devserver port")
	}
	if !strings.Contains(err.Error(), "SKEWSENTRY_DEVSERVER_PORT") {
		t.Fatalf("expected SKEWSENTRY_DEVSERVER_PORT in error, got: %v", err)
	}
}

func TestValidateConfigAggregatesMultipleProblems(t *testing.T) {
	cfg := LoadConfig()
	cfg.HTTPBatchSize = -1
	cfg.HTTPRetries = -1

	err := ValidateConfig(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "SKEWSENTRY_HTTP_BATCH_SIZE") || !strings.Contains(msg, "SKEWSENTRY_HTTP_RETRIES") {
		t.Fatalf("expected both problems aggregated into one error, got: %v", msg)
	}
}
