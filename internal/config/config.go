package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"rent-reclaim-bot-go/pkg/utils"
)

var (
	ErrMissingOperator     = errors.New("KORA_OPERATOR_ADDRESS is required")
	ErrTelegramCredentials = errors.New("telegram is enabled but TELEGRAM_BOT_TOKEN or TELEGRAM_CHAT_ID is missing")
)

// Config represents the application configuration
type Config struct {
	// Network settings
	Network   string `mapstructure:"network" yaml:"network"`
	RPCUrl    string `mapstructure:"rpc_url" yaml:"rpc_url"`
	WSUrl     string `mapstructure:"ws_url" yaml:"ws_url"`
	RPCAPIKey string `mapstructure:"rpc_api_key" yaml:"rpc_api_key"`

	Operator  OperatorConfig  `mapstructure:"operator" yaml:"operator"`
	RPC       RPCConfig       `mapstructure:"rpc" yaml:"rpc"`
	Scanner   ScannerConfig   `mapstructure:"scanner" yaml:"scanner"`
	Monitor   MonitorConfig   `mapstructure:"monitor" yaml:"monitor"`
	Reclaimer ReclaimerConfig `mapstructure:"reclaimer" yaml:"reclaimer"`
	Telegram  TelegramConfig  `mapstructure:"telegram" yaml:"telegram"`
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`

	// ForcedDryRun is set when dry-run was switched on because no signing credential is configured.
	ForcedDryRun bool `mapstructure:"-" yaml:"-"`
}

// OperatorConfig identifies the fee payer whose sponsored accounts are tracked
type OperatorConfig struct {
	Address     string `mapstructure:"address" yaml:"address"`
	Keypair     string `mapstructure:"keypair" yaml:"keypair"`           // base58 encoded 64 byte secret
	KeypairPath string `mapstructure:"keypair_path" yaml:"keypair_path"` // solana-keygen JSON file
	Mnemonic    string `mapstructure:"mnemonic" yaml:"mnemonic"`
	Treasury    string `mapstructure:"treasury" yaml:"treasury"`
}

// RPCConfig controls request pacing against the RPC node
type RPCConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
	Commitment        string  `mapstructure:"commitment" yaml:"commitment"`
	TimeoutSec        int     `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// ScannerConfig contains transaction history scan settings
type ScannerConfig struct {
	BatchSize      int    `mapstructure:"batch_size" yaml:"batch_size"`
	MaxSignatures  int    `mapstructure:"max_signatures" yaml:"max_signatures"`
	PageDelayMs    int    `mapstructure:"page_delay_ms" yaml:"page_delay_ms"`
	UntilSignature string `mapstructure:"until_signature" yaml:"until_signature"`
}

// MonitorConfig contains account re-check settings
type MonitorConfig struct {
	MinLamportsForReclaim uint64 `mapstructure:"min_lamports_for_reclaim" yaml:"min_lamports_for_reclaim"`
	PauseEvery            int    `mapstructure:"pause_every" yaml:"pause_every"`
	PauseDelayMs          int    `mapstructure:"pause_delay_ms" yaml:"pause_delay_ms"`
	CheckIntervalSec      int    `mapstructure:"check_interval_sec" yaml:"check_interval_sec"`
}

// ReclaimerConfig contains close-account settings
type ReclaimerConfig struct {
	DryRun      bool     `mapstructure:"dry_run" yaml:"dry_run"`
	BatchSize   int      `mapstructure:"batch_size" yaml:"batch_size"`
	Whitelist   []string `mapstructure:"whitelist" yaml:"whitelist"`
	AutoReclaim bool     `mapstructure:"auto_reclaim" yaml:"auto_reclaim"`
}

// TelegramConfig contains notification channel credentials
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	BotToken string `mapstructure:"bot_token" yaml:"bot_token"`
	ChatID   string `mapstructure:"chat_id" yaml:"chat_id"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // "json" or "sqlite"
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	LogToFile   bool   `mapstructure:"log_to_file" yaml:"log_to_file"`
	LogFilePath string `mapstructure:"log_file_path" yaml:"log_file_path"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string, envPath string) (*Config, error) {
	if err := loadEnvFile(envPath); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("reclaimbot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.rent-reclaim-bot")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnvVariables(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment variables: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// loadEnvFile loads a .env file into the process environment without overriding set variables
func loadEnvFile(envPath string) error {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envPath, err)
		}
		return nil
	}

	for _, file := range []string{".env", "configs/.env"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", file, err)
		}
		return nil
	}
	return nil
}

// bindEnvVariables maps the documented environment names onto config keys
func bindEnvVariables(v *viper.Viper) error {
	bindings := map[string][]string{
		"network":     {"SOLANA_NETWORK"},
		"rpc_url":     {"SOLANA_RPC_URL"},
		"ws_url":      {"SOLANA_WS_URL"},
		"rpc_api_key": {"SOLANA_RPC_API_KEY"},

		"operator.address":      {"KORA_OPERATOR_ADDRESS"},
		"operator.keypair":      {"KORA_OPERATOR_KEYPAIR"},
		"operator.keypair_path": {"KORA_OPERATOR_KEYPAIR_PATH"},
		"operator.mnemonic":     {"KORA_OPERATOR_MNEMONIC"},
		"operator.treasury":     {"KORA_TREASURY_ADDRESS"},

		"scanner.until_signature": {"SCAN_UNTIL_SIGNATURE"},
		"scanner.max_signatures":  {"SCAN_MAX_SIGNATURES"},

		"monitor.check_interval_sec":       {"CHECK_INTERVAL_SEC"},
		"monitor.min_lamports_for_reclaim": {"MIN_LAMPORTS_FOR_RECLAIM"},

		"reclaimer.dry_run":      {"DRY_RUN"},
		"reclaimer.whitelist":    {"RECLAIM_WHITELIST"},
		"reclaimer.auto_reclaim": {"AUTO_RECLAIM"},

		"telegram.enabled":   {"TELEGRAM_ENABLED"},
		"telegram.bot_token": {"TELEGRAM_BOT_TOKEN"},
		"telegram.chat_id":   {"TELEGRAM_CHAT_ID"},

		"storage.backend":  {"STORE_BACKEND"},
		"storage.data_dir": {"DATA_DIR"},

		"logging.level":  {"LOG_LEVEL"},
		"logging.format": {"LOG_FORMAT"},
	}

	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Network defaults
	v.SetDefault("network", "devnet")
	v.SetDefault("rpc_url", "")
	v.SetDefault("ws_url", "")

	v.SetDefault("rpc.requests_per_second", DefaultRequestsPerSecond)
	v.SetDefault("rpc.burst", DefaultRequestBurst)
	v.SetDefault("rpc.commitment", "confirmed")
	v.SetDefault("rpc.timeout_sec", 30)

	v.SetDefault("scanner.batch_size", DefaultScanBatchSize)
	v.SetDefault("scanner.max_signatures", DefaultMaxSignatures)
	v.SetDefault("scanner.page_delay_ms", DefaultScanPageDelayMs)
	v.SetDefault("scanner.until_signature", "")

	v.SetDefault("monitor.min_lamports_for_reclaim", DefaultMinLamports)
	v.SetDefault("monitor.pause_every", DefaultMonitorPauseEvery)
	v.SetDefault("monitor.pause_delay_ms", DefaultMonitorPauseMs)
	v.SetDefault("monitor.check_interval_sec", DefaultCheckIntervalSec)

	v.SetDefault("reclaimer.dry_run", false)
	v.SetDefault("reclaimer.batch_size", DefaultReclaimBatchSize)
	v.SetDefault("reclaimer.whitelist", []string{})
	v.SetDefault("reclaimer.auto_reclaim", false)

	v.SetDefault("telegram.enabled", false)

	v.SetDefault("storage.backend", "json")
	v.SetDefault("storage.data_dir", DefaultDataDir)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "custom")
	v.SetDefault("logging.log_to_file", false)
	v.SetDefault("logging.log_file_path", "logs/reclaimbot.log")
}

func validateConfig(config *Config) error {
	// Set RPC and WS URLs if not provided
	if config.RPCUrl == "" {
		config.RPCUrl = GetRPCEndpoint(config.Network)
	}
	if config.WSUrl == "" {
		config.WSUrl = GetWSEndpoint(config.Network)
	}

	if config.Operator.Address == "" {
		return ErrMissingOperator
	}
	if !utils.IsValidSolanaAddress(config.Operator.Address) {
		return fmt.Errorf("operator address %q is not a valid public key", config.Operator.Address)
	}

	if config.Operator.Treasury == "" {
		config.Operator.Treasury = config.Operator.Address
	} else if !utils.IsValidSolanaAddress(config.Operator.Treasury) {
		return fmt.Errorf("treasury address %q is not a valid public key", config.Operator.Treasury)
	}

	if !config.HasSigningCredential() && !config.Reclaimer.DryRun {
		config.Reclaimer.DryRun = true
		config.ForcedDryRun = true
	}

	if config.Scanner.UntilSignature != "" && !utils.IsValidSolanaSignature(config.Scanner.UntilSignature) {
		return fmt.Errorf("scanner.until_signature %q is not a valid signature", config.Scanner.UntilSignature)
	}

	if config.Telegram.Enabled && (config.Telegram.BotToken == "" || config.Telegram.ChatID == "") {
		return ErrTelegramCredentials
	}

	if config.Scanner.BatchSize < 1 || config.Scanner.BatchSize > DefaultMaxSignatures {
		return fmt.Errorf("scanner.batch_size must be between 1 and %d", DefaultMaxSignatures)
	}
	if config.Scanner.MaxSignatures < 1 {
		return fmt.Errorf("scanner.max_signatures must be positive")
	}
	if config.Monitor.CheckIntervalSec < 1 {
		return fmt.Errorf("monitor.check_interval_sec must be positive")
	}
	if config.Reclaimer.BatchSize < 1 {
		return fmt.Errorf("reclaimer.batch_size must be positive")
	}

	switch config.Storage.Backend {
	case "json", "sqlite":
	default:
		return fmt.Errorf("storage.backend must be 'json' or 'sqlite', got %q", config.Storage.Backend)
	}

	// Create log directories if they don't exist
	if config.Logging.LogToFile {
		logDir := filepath.Dir(config.Logging.LogFilePath)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	return nil
}

// HasSigningCredential reports whether any form of operator secret is configured
func (c *Config) HasSigningCredential() bool {
	return c.Operator.Keypair != "" || c.Operator.KeypairPath != "" || c.Operator.Mnemonic != ""
}

func (c *Config) GetPageDelay() time.Duration {
	return time.Duration(c.Scanner.PageDelayMs) * time.Millisecond
}

func (c *Config) GetPauseDelay() time.Duration {
	return time.Duration(c.Monitor.PauseDelayMs) * time.Millisecond
}

func (c *Config) GetCheckInterval() time.Duration {
	return time.Duration(c.Monitor.CheckIntervalSec) * time.Second
}

func (c *Config) GetRPCTimeout() time.Duration {
	return time.Duration(c.RPC.TimeoutSec) * time.Second
}

// AccountsPath is the tracked-account document for the json backend
func (c *Config) AccountsPath() string {
	return filepath.Join(c.Storage.DataDir, "tracked-accounts.json")
}

// HistoryPath is the reclaim history document for the json backend
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Storage.DataDir, "reclaim-history.json")
}

// SQLitePath is the database file for the sqlite backend
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Storage.DataDir, "reclaimbot.db")
}
