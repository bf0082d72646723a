package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("KAFKA_BROKERS", "broker1:9092")
	t.Setenv("ERP_BASE_URL", "https://erp.example.com")
	t.Setenv("ERP_API_KEY", "key-123")
	t.Setenv("ARCHIVE_BUCKET", "message-archive")
}

func TestLoadConfigFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_GROUP_ID", "bridge-test")
	t.Setenv("TOPIC_MES_OUTPUT", "mes-out")
	t.Setenv("PRIMARY_MES_ENABLED", "true")
	t.Setenv("ERP_CONFIRMATION_DELAY", "5s")
	t.Setenv("APPLICATION_NAME", "bridge")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got, want := len(cfg.KafkaBrokers), 2; got != want {
		t.Fatalf("expected %d kafka brokers, got %d", want, got)
	}
	if cfg.GroupID != "bridge-test" {
		t.Fatalf("expected GroupID=bridge-test, got %s", cfg.GroupID)
	}
	if cfg.MesOutputTopic != "mes-out" {
		t.Fatalf("expected MesOutputTopic=mes-out, got %s", cfg.MesOutputTopic)
	}
	if !cfg.PrimaryMesEnabled {
		t.Fatalf("expected PrimaryMesEnabled=true")
	}
	if cfg.ErpConfirmationDelay != 5*time.Second {
		t.Fatalf("expected ErpConfirmationDelay=5s, got %s", cfg.ErpConfirmationDelay)
	}
	if cfg.ApplicationName != "bridge" {
		t.Fatalf("expected ApplicationName=bridge, got %s", cfg.ApplicationName)
	}
	if cfg.LogLevel != "DEBUG" {
		t.Fatalf("expected LogLevel=DEBUG, got %s", cfg.LogLevel)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"KAFKA_GROUP_ID", "TOPIC_MES_OUTPUT", "TOPIC_STATUS",
		"QUEUE_PRODUCTION_ORDER_PRIMARY", "PRIMARY_MES_ENABLED",
		"ERP_CONFIRMATION_DELAY", "APPLICATION_NAME", "LOG_LEVEL",
	} {
		_ = os.Unsetenv(key)
	}
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.GroupID != "erp-mes-bridge" {
		t.Fatalf("expected default GroupID=erp-mes-bridge, got %s", cfg.GroupID)
	}
	if cfg.MesOutputTopic != "mes-output-xml" {
		t.Fatalf("expected default MesOutputTopic=mes-output-xml, got %s", cfg.MesOutputTopic)
	}
	if cfg.StatusTopic != "transaction-manager-status-updates" {
		t.Fatalf("expected default StatusTopic, got %s", cfg.StatusTopic)
	}
	if cfg.ProductionOrderQueuePrimary != "production-order-to-mes1" {
		t.Fatalf("unexpected default primary queue: %s", cfg.ProductionOrderQueuePrimary)
	}
	if cfg.PrimaryMesEnabled {
		t.Fatalf("expected PrimaryMesEnabled default false")
	}
	if cfg.ErpConfirmationDelay != 0 {
		t.Fatalf("expected zero default delay, got %s", cfg.ErpConfirmationDelay)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	_ = os.Unsetenv("KAFKA_BROKERS")
	t.Setenv("ERP_BASE_URL", "https://erp.example.com")
	t.Setenv("ERP_API_KEY", "key-123")
	t.Setenv("ARCHIVE_BUCKET", "message-archive")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing KAFKA_BROKERS")
	}
}

func TestLoadConfigNegativeDelay(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ERP_CONFIRMATION_DELAY", "-1s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for negative delay")
	}
}
