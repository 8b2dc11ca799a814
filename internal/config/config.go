package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Custody  CustodyConfig  `mapstructure:"custody"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Task     TaskConfig     `mapstructure:"task"`
	Events   EventsConfig   `mapstructure:"events"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // postgres, sqlite, memory
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"` // sqlite file
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// CustodyConfig selects where escrowed value lives.
type CustodyConfig struct {
	Driver         string        `mapstructure:"driver"` // memory, erc20
	RpcUrl         string        `mapstructure:"rpc_url"`
	ChainId        int64         `mapstructure:"chain_id"`
	TokenAddress   string        `mapstructure:"token_address"`
	EscrowAddress  string        `mapstructure:"escrow_address"`
	PrivateKey     string        `mapstructure:"private_key"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	GasLimit       uint64        `mapstructure:"gas_limit"` // 0 estimates per call
	// Faucet pre-funds and pre-approves accounts of the memory driver.
	Faucet map[string]uint64 `mapstructure:"faucet"`
}

type LedgerConfig struct {
	AllowEarlyDonations bool `mapstructure:"allow_early_donations"`
}

type TaskConfig struct {
	Interval   int  `mapstructure:"interval"` // 秒
	AutoRefund bool `mapstructure:"auto_refund"`
	Workers    int  `mapstructure:"workers"`
}

// EventsConfig enables the Redis event sink when RedisAddr is set.
type EventsConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisKey      string `mapstructure:"redis_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error, fatal
	Output string `mapstructure:"output"` // stdout, stderr, file
	File   string `mapstructure:"file"`
}

func (l LogConfig) GetLevel() string  { return l.Level }
func (l LogConfig) GetOutput() string { return l.Output }
func (l LogConfig) GetFile() string   { return l.File }

// Load reads config.yaml from the usual locations, a local .env file and
// ESCROW_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/escrow")
	return load(v)
}

// LoadFile reads the config from path instead of the search paths.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("escrow")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "escrow")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "data/escrow.db")
	v.SetDefault("custody.driver", "memory")
	v.SetDefault("custody.confirm_timeout", "2m")
	v.SetDefault("ledger.allow_early_donations", false)
	v.SetDefault("task.interval", 60)
	v.SetDefault("task.auto_refund", false)
	v.SetDefault("task.workers", 8)
	v.SetDefault("events.redis_key", "escrow:events")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file", "logs/app.log")
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite", "memory":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Custody.Driver {
	case "memory":
		// Memory balances are lost on restart while a durable ledger is not.
		if c.Database.Driver != "memory" {
			return fmt.Errorf("memory custody requires database.driver memory, got %q", c.Database.Driver)
		}
	case "erc20":
		if c.Custody.RpcUrl == "" || c.Custody.TokenAddress == "" || c.Custody.PrivateKey == "" {
			return errors.New("erc20 custody requires rpc_url, token_address and private_key")
		}
	default:
		return fmt.Errorf("unsupported custody driver %q", c.Custody.Driver)
	}
	if c.Task.Interval <= 0 {
		return errors.New("task.interval must be positive")
	}
	if c.Task.Workers <= 0 {
		c.Task.Workers = 1
	}
	return nil
}
