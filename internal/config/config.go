// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	RPCURL             string `mapstructure:"rpc_url"`
	JupiterBaseURL     string `mapstructure:"jupiter_base_url"`
	WalletKeyFile      string `mapstructure:"wallet_key_file"`
	Architecture       string `mapstructure:"architecture"`
	TreasuryFeeBps     uint16 `mapstructure:"treasury_fee_bps"`
	ReflectionFeeBps   uint16 `mapstructure:"reflection_fee_bps"`
	SlippageBps        uint16 `mapstructure:"slippage_bps"`
	ComputeUnitPrice   uint64 `mapstructure:"compute_unit_price"`
	DustThresholdPct   int    `mapstructure:"dust_threshold_pct"`
	QuoteTimeout       int    `mapstructure:"quote_timeout_ms"`
	ConfirmationTime   int    `mapstructure:"confirmation_time_ms"`
	PollInterval       int    `mapstructure:"poll_interval_ms"`
	SendRetries        int    `mapstructure:"send_retries"`
	SimulateFirst      bool   `mapstructure:"simulate_first"`
	SkipPreflight      bool   `mapstructure:"skip_preflight"`
	DebugLogging       bool   `mapstructure:"debug_logging"`
	MetricsListenAddr  string `mapstructure:"metrics_listen_addr"`
	LogFile            string `mapstructure:"log_file"`
}

const (
	DefaultJupiterBaseURL   = "https://quote-api.jup.ag/v6"
	DefaultArchitecture     = "v3"
	DefaultSlippageBps      = 50
	DefaultDustThresholdPct = 95
	DefaultQuoteTimeout     = 5000
	DefaultConfirmationTime = 45000
	DefaultPollInterval     = 500
	DefaultSendRetries      = 3
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"jupiter_base_url":     DefaultJupiterBaseURL,
		"architecture":         DefaultArchitecture,
		"slippage_bps":         DefaultSlippageBps,
		"dust_threshold_pct":   DefaultDustThresholdPct,
		"quote_timeout_ms":     DefaultQuoteTimeout,
		"confirmation_time_ms": DefaultConfirmationTime,
		"poll_interval_ms":     DefaultPollInterval,
		"send_retries":         DefaultSendRetries,
		"simulate_first":       true,
		"log_file":             "raceswap.log",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("missing rpc_url in configuration")
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if err := validateURLWithCache(cfg.JupiterBaseURL, "http"); err != nil {
		return errors.New("invalid Jupiter base URL protocol")
	}
	if cfg.WalletKeyFile == "" {
		return errors.New("missing wallet_key_file in configuration")
	}
	switch strings.ToLower(cfg.Architecture) {
	case "v1", "v2", "v3":
	default:
		return errors.New("architecture must be one of v1, v2, v3")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.TreasuryFeeBps > 1000 {
		return errors.New("treasury_fee_bps exceeds the 10% ceiling")
	}
	if cfg.ReflectionFeeBps > 1000 {
		return errors.New("reflection_fee_bps exceeds the 10% ceiling")
	}
	if cfg.SlippageBps > 10000 {
		return errors.New("invalid slippage_bps")
	}
	if cfg.DustThresholdPct < 0 || cfg.DustThresholdPct > 100 {
		return errors.New("dust_threshold_pct must be within [0, 100]")
	}
	if cfg.QuoteTimeout <= 0 {
		return errors.New("invalid quote_timeout_ms")
	}
	if cfg.ConfirmationTime <= 0 {
		return errors.New("invalid confirmation_time_ms")
	}
	if cfg.PollInterval <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.SendRetries < 0 {
		return errors.New("invalid send_retries count")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("RACESWAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envRPC := v.GetString("RPC_URL"); envRPC != "" {
		cfg.RPCURL = strings.TrimSpace(envRPC)
	}
	if envKeyFile := v.GetString("WALLET_KEY_FILE"); envKeyFile != "" {
		cfg.WalletKeyFile = strings.TrimSpace(envKeyFile)
	}
	if envJupiter := v.GetString("JUPITER_BASE_URL"); envJupiter != "" {
		cfg.JupiterBaseURL = strings.TrimSpace(envJupiter)
	}
	return nil
}
