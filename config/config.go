package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig           `mapstructure:"server"`
	Database DatabaseConfig         `mapstructure:"database"`
	Redis    RedisConfig            `mapstructure:"redis"`
	Vault    VaultConfig            `mapstructure:"vault"`
	Wallet   WalletConfig           `mapstructure:"wallet"`
	JWT      JWTConfig              `mapstructure:"jwt"`
	Monitor  MonitorConfig          `mapstructure:"monitor"`
	Webhook  WebhookConfig          `mapstructure:"webhook"`
	Forward  ForwardConfig          `mapstructure:"forward"`
	Chains   map[string]ChainConfig `mapstructure:"chains"`
	Log      LogConfig              `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// VaultConfig holds the key-custody master encryption key.
type VaultConfig struct {
	MasterKey string `mapstructure:"master_key"` // 32-byte hex-encoded key for AES-256-GCM
}

// WalletConfig holds the HD wallet master secret. MasterSeed accepts either
// a BIP-39 mnemonic or a hex-encoded seed.
type WalletConfig struct {
	MasterSeed string `mapstructure:"master_seed"`
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// MonitorConfig drives the chain polling loop.
type MonitorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	LockTTL      time.Duration `mapstructure:"lock_ttl"`
}

// WebhookConfig bounds merchant notification delivery.
type WebhookConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ForwardConfig holds the commission schedule and the platform's own wallets.
// Rates are in basis points; the reduced rate applies to paid-tier businesses.
type ForwardConfig struct {
	CommissionBps        int64             `mapstructure:"commission_bps"`
	ReducedCommissionBps int64             `mapstructure:"reduced_commission_bps"`
	PlatformWallets      map[string]string `mapstructure:"platform_wallets"` // chain -> address
}

// ChainConfig configures one supported blockchain.
type ChainConfig struct {
	RPCURL                string `mapstructure:"rpc_url"`
	RequiredConfirmations uint64 `mapstructure:"required_confirmations"`
	PaymentTTL            time.Duration `mapstructure:"payment_ttl"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CPG_ (ChainPay Gateway).
// Nested keys use underscore: CPG_DATABASE_HOST, CPG_VAULT_MASTER_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "chainpay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("vault.master_key", "")
	v.SetDefault("wallet.master_seed", "")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "chainpay-gateway")
	v.SetDefault("monitor.poll_interval", "30s")
	v.SetDefault("monitor.batch_size", 50)
	v.SetDefault("monitor.lock_ttl", "25s")
	v.SetDefault("webhook.max_attempts", 5)
	v.SetDefault("webhook.timeout", "15s")
	v.SetDefault("forward.commission_bps", 100)        // 1.00% default
	v.SetDefault("forward.reduced_commission_bps", 50) // 0.50% paid tier
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CPG_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CPG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
