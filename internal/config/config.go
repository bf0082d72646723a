package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the runtime configuration for the bridge. Topic and queue
// names default to the deployed naming scheme but stay overridable since the
// naming scheme itself is an infrastructure concern.
type Config struct {
	KafkaBrokers []string `env:"KAFKA_BROKERS,notEmpty" envSeparator:","`
	GroupID      string   `env:"KAFKA_GROUP_ID" envDefault:"erp-mes-bridge"`

	// Inbound topics.
	MesOutputTopic       string `env:"TOPIC_MES_OUTPUT" envDefault:"mes-output-xml"`
	BackflushTopic       string `env:"TOPIC_BACKFLUSH" envDefault:"superbackflush-from-mes"`
	IssuesTopic          string `env:"TOPIC_ISSUES" envDefault:"workorderissues-from-mes"`
	ProductionOrderTopic string `env:"TOPIC_PRODUCTION_ORDER" envDefault:"production-order-v1"`
	InventoryMoveTopic   string `env:"TOPIC_INVENTORY_MOVE" envDefault:"inventory-location-move-v1"`
	InspectionLotTopic   string `env:"TOPIC_INSPECTION_LOT" envDefault:"inspection-lot-v1"`
	MaterialMasterTopic  string `env:"TOPIC_MATERIAL_MASTER" envDefault:"material-master-v1"`

	// Second-generation MES event topics carrying the JSON wrapper alongside
	// the raw XML forwarded on the inbound topics above.
	BackflushV2Topic string `env:"TOPIC_BACKFLUSH_V2" envDefault:"superbackflush-from-mes-v2"`
	IssuesV2Topic    string `env:"TOPIC_ISSUES_V2" envDefault:"workorderissues-from-mes-v2"`

	// Outbound status queue, session-keyed by the tracking token.
	StatusTopic string `env:"TOPIC_STATUS" envDefault:"transaction-manager-status-updates"`

	// Outbound MES queues, one pair per document flow. The secondary queue
	// serves the second MES instance.
	ProductionOrderQueuePrimary   string `env:"QUEUE_PRODUCTION_ORDER_PRIMARY" envDefault:"production-order-to-mes1"`
	ProductionOrderQueueSecondary string `env:"QUEUE_PRODUCTION_ORDER_SECONDARY" envDefault:"production-order-to-mes"`
	InventoryMoveQueuePrimary     string `env:"QUEUE_INVENTORY_MOVE_PRIMARY" envDefault:"inventory-location-move-to-mes1"`
	InventoryMoveQueueSecondary   string `env:"QUEUE_INVENTORY_MOVE_SECONDARY" envDefault:"inventory-location-move-to-mes"`
	MaterialMasterQueuePrimary    string `env:"QUEUE_MATERIAL_MASTER_PRIMARY" envDefault:"material-master-to-mes1"`
	MaterialMasterQueueSecondary  string `env:"QUEUE_MATERIAL_MASTER_SECONDARY" envDefault:"material-master-to-mes"`

	// PrimaryMesEnabled gates forwarding to the primary MES instance until
	// its go-live.
	PrimaryMesEnabled bool `env:"PRIMARY_MES_ENABLED" envDefault:"false"`

	// ERP REST API.
	ErpBaseURL string `env:"ERP_BASE_URL,notEmpty"`
	ErpAPIKey  string `env:"ERP_API_KEY,notEmpty"`

	// ErpConfirmationDelay is the settle delay after a successful
	// confirmation POST, compensating for the ERP's asynchronous
	// post-processing. Zero disables it.
	ErpConfirmationDelay time.Duration `env:"ERP_CONFIRMATION_DELAY" envDefault:"0s"`

	// Archive storage.
	ArchiveBucket     string `env:"ARCHIVE_BUCKET,notEmpty"`
	ArchiveBrowserURL string `env:"ARCHIVE_BROWSER_URL" envDefault:""`

	// ApplicationName identifies the bridge in status updates.
	ApplicationName string `env:"APPLICATION_NAME" envDefault:"erp-mes-bridge"`

	// CodeTableDir overrides the embedded code tables when set.
	CodeTableDir string `env:"CODE_TABLE_DIR" envDefault:""`

	LogLevel string `env:"LOG_LEVEL" envDefault:"INFO"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if cfg.ErpConfirmationDelay < 0 {
		return nil, fmt.Errorf("ERP_CONFIRMATION_DELAY must not be negative")
	}
	return &cfg, nil
}
