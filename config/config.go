package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Session   SessionConfig   `mapstructure:"session"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// ProcessorConfig points at the payment/fulfillment processor. The API key is
// server-held and never crosses the HTTP surface.
type ProcessorConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WalletConfig points at the JSON-RPC wallet endpoint that signs settlement
// transactions. Keys live behind that endpoint, never in this process.
type WalletConfig struct {
	RPCURL  string        `mapstructure:"rpc_url"`
	From    string        `mapstructure:"from"`
	Timeout time.Duration `mapstructure:"timeout"`
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

// CheckoutConfig fixes the settlement rails for this deployment. Currency is
// a single stablecoin; multi-currency needs processor re-confirmation first.
type CheckoutConfig struct {
	Chain        string        `mapstructure:"chain"`
	Currency     string        `mapstructure:"currency"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BalanceTTL   time.Duration `mapstructure:"balance_ttl"`
}

type SessionConfig struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
	Issuer      string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CHK.
// Nested keys use underscore: CHK_PROCESSOR_API_KEY, CHK_REDIS_HOST, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("processor.base_url", "https://www.crossmint.com")
	v.SetDefault("processor.api_key", "")
	v.SetDefault("processor.timeout", "15s")
	v.SetDefault("wallet.rpc_url", "http://localhost:8545")
	v.SetDefault("wallet.from", "")
	v.SetDefault("wallet.timeout", "120s")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("checkout.chain", "base")
	v.SetDefault("checkout.currency", "usdc")
	v.SetDefault("checkout.poll_interval", "1s")
	v.SetDefault("checkout.balance_ttl", "30s")
	v.SetDefault("session.token_secret", "")
	v.SetDefault("session.token_expiry", "1h")
	v.SetDefault("session.issuer", "stablecoin-checkout")
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

	// Environment variables: CHK_PROCESSOR_BASE_URL -> processor.base_url
	v.SetEnvPrefix("CHK")
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
