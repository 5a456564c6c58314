// Package config loads the terminal configuration from environment variables
// and an optional config file. Compliance identifiers live here so no call
// site carries a hard-coded constant.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPPort string `mapstructure:"http_port"`

	CartServiceURL    string `mapstructure:"cart_service_url"`
	PaymentGatewayURL string `mapstructure:"payment_gateway_url"`
	PrinterURL        string `mapstructure:"printer_url"`
	FiscalDeviceURL   string `mapstructure:"fiscal_device_url"`

	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AutoCloseDelay  time.Duration `mapstructure:"auto_close_delay"`

	FiscalTaxID       string `mapstructure:"fiscal_tax_id"`
	RegisterID        string `mapstructure:"register_id"`
	FiscalTaxIDFormat string `mapstructure:"fiscal_tax_id_format"`
	RegisterIDFormat  string `mapstructure:"register_id_format"`
	StrictCompliance  bool   `mapstructure:"strict_compliance"`

	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	AuditTopic   string   `mapstructure:"audit_topic"`
}

// Load reads the configuration. path may name a directory holding
// terminal.yaml; an empty path means env-and-defaults only.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", "8090")
	v.SetDefault("cart_service_url", "http://localhost:8091")
	v.SetDefault("payment_gateway_url", "http://localhost:8091")
	v.SetDefault("printer_url", "http://localhost:8091")
	v.SetDefault("fiscal_device_url", "http://localhost:8091")
	v.SetDefault("request_timeout", 5*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("auto_close_delay", 30*time.Second)
	v.SetDefault("fiscal_tax_id", "")
	v.SetDefault("register_id", "")
	v.SetDefault("fiscal_tax_id_format", `^ATU\d{8}$`)
	v.SetDefault("register_id_format", `^[A-Z0-9][A-Z0-9-]{2,19}$`)
	v.SetDefault("strict_compliance", true)
	v.SetDefault("kafka_brokers", []string{})
	v.SetDefault("audit_topic", "checkout-audit")

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigName("terminal")
		v.SetConfigType("yaml")
		v.AddConfigPath(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.FiscalTaxID == "" || cfg.RegisterID == "" {
		return nil, fmt.Errorf("fiscal_tax_id and register_id are required")
	}
	return &cfg, nil
}
