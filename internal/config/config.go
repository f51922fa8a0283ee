package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PaystackConfig holds gateway credentials. The secret key never leaves the server.
type PaystackConfig struct {
	Mode       string        `yaml:"mode"` // test | live
	TestKey    string        `yaml:"test_key"`
	PublicKey  string        `yaml:"public_key"`
	TestSecret string        `yaml:"test_secret"`
	SecretKey  string        `yaml:"secret_key"`
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Currency   string        `yaml:"currency"`
}

type ClickHouseConfig struct {
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
		Env     string `yaml:"env"`
	} `yaml:"app"`
	Server struct {
		Port         string        `yaml:"port"`
		ReadTimeout  time.Duration `yaml:"read_timeout"`
		WriteTimeout time.Duration `yaml:"write_timeout"`
		RateLimit    int           `yaml:"rate_limit"`
		RateWindow   time.Duration `yaml:"rate_window"`
	} `yaml:"server"`
	Storage struct {
		Driver string `yaml:"driver"` // postgres | mongo | memory
	} `yaml:"storage"`
	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Kafka struct {
		BootstrapServers string `yaml:"bootstrap_servers"`
		Topic            string `yaml:"topic"`
		DLQTopic         string `yaml:"dlq_topic"`
	} `yaml:"kafka"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	Jaeger struct {
		Port string `yaml:"port"`
	} `yaml:"jaeger"`
	Admin struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"admin"`
	Paystack   PaystackConfig   `yaml:"paystack"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// Load reads .env (if present) into the process environment, then parses the YAML file
// with ${VAR} references expanded.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// First, we substitute environment variables into the raw YAML file.
	expandedFile := os.ExpandEnv(string(file))

	if err := yaml.Unmarshal([]byte(expandedFile), config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	config.applyDefaults()

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "DataFlow Order Management System"
	}
	if c.App.Version == "" {
		c.App.Version = "2.0.0"
	}
	if c.App.Env == "" {
		c.App.Env = "production"
	}
	if c.Server.Port == "" {
		c.Server.Port = ":3000"
	}
	if !strings.Contains(c.Server.Port, ":") {
		c.Server.Port = ":" + c.Server.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 5 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.RateLimit == 0 {
		c.Server.RateLimit = 100
	}
	if c.Server.RateWindow == 0 {
		c.Server.RateWindow = time.Minute
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "dataflow"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "orders.created"
	}
	if c.Kafka.DLQTopic == "" {
		c.Kafka.DLQTopic = "orders.created.dlq"
	}
	if c.Paystack.Mode == "" {
		c.Paystack.Mode = "test"
	}
	if c.Paystack.BaseURL == "" {
		c.Paystack.BaseURL = "https://api.paystack.co"
	}
	if c.Paystack.Timeout == 0 {
		c.Paystack.Timeout = 10 * time.Second
	}
	if c.Paystack.Currency == "" {
		c.Paystack.Currency = "GHS"
	}
}

// PaystackPublicKey selects the key served to browsers: in test mode the test key wins,
// falling back to the public key; in live mode only the public key is used.
func (c *Config) PaystackPublicKey() string {
	if c.Paystack.Mode == "test" {
		if c.Paystack.TestKey != "" {
			return c.Paystack.TestKey
		}
	}
	return c.Paystack.PublicKey
}

// PaystackSecretKey follows the same mode rules as PaystackPublicKey.
func (c *Config) PaystackSecretKey() string {
	if c.Paystack.Mode == "test" {
		if c.Paystack.TestSecret != "" {
			return c.Paystack.TestSecret
		}
	}
	return c.Paystack.SecretKey
}

// KafkaBrokers splits the comma separated bootstrap list.
func (c *Config) KafkaBrokers() []string {
	parts := strings.Split(c.Kafka.BootstrapServers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
