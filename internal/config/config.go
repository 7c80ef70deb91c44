package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Environment variables that override secrets from the YAML file
const (
	EnvDatabasePassword = "PRINTDESK_DB_PASSWORD"
	EnvRabbitPassword   = "PRINTDESK_RABBITMQ_PASSWORD"
	EnvOwnerID          = "PRINTDESK_OWNER_ID"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Logging  LoggingConfig  `yaml:"logging"`
	App      AppConfig      `yaml:"app"`
	Shop     ShopConfig     `yaml:"shop"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Worker   WorkerConfig   `yaml:"worker"`
	Printer  PrinterConfig  `yaml:"printer"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
}

// DatabaseConfig holds PostgreSQL connection configuration for the order ledger
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnectRetries  int           `yaml:"connect_retries"`
	RetryInterval   time.Duration `yaml:"retry_interval"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host              string           `yaml:"host"`
	Port              int              `yaml:"port"`
	User              string           `yaml:"user"`
	Password          string           `yaml:"password"`
	VHost             string           `yaml:"vhost"`
	Exchange          ExchangeConfig   `yaml:"exchange"`
	Queue             QueueConfig      `yaml:"queue"`
	RoutingKey        string           `yaml:"routing_key"`
	PublishRoutingKey string           `yaml:"publish_routing_key"`
	Connection        ConnectionConfig `yaml:"connection"`
	Publish           PublishConfig    `yaml:"publish"`
	Consumer          ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name               string `yaml:"name"`
	Durable            bool   `yaml:"durable"`
	AutoDelete         bool   `yaml:"auto_delete"`
	Exclusive          bool   `yaml:"exclusive"`
	DeadLetterExchange string `yaml:"dead_letter_exchange"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	Tag           string `yaml:"tag"`
	PrefetchCount int    `yaml:"prefetch_count"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
	NoColor      bool   `yaml:"no_color"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// ShopConfig holds the print shop settings
type ShopConfig struct {
	DownloadDir    string          `yaml:"download_dir"`
	StagingDir     string          `yaml:"staging_dir"`
	RetentionHours int             `yaml:"retention_hours"`
	PricePerPage   decimal.Decimal `yaml:"price_per_page"`
	Currency       string          `yaml:"currency"`
	OwnerID        string          `yaml:"owner_id"`
	NotifyOwner    bool            `yaml:"notify_owner"`
}

// Retention returns the job retention window
func (s ShopConfig) Retention() time.Duration {
	return time.Duration(s.RetentionHours) * time.Hour
}

// WorkflowConfig holds the workflow timings
type WorkflowConfig struct {
	NotifyDelay     time.Duration `yaml:"notify_delay"`
	CompletionGrace time.Duration `yaml:"completion_grace"`
	PrintPacing     time.Duration `yaml:"print_pacing"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
}

// WorkerConfig holds event worker configuration
type WorkerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	QueueSize       int           `yaml:"queue_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// PrinterConfig selects how staged files reach the printer
type PrinterConfig struct {
	Mode    string        `yaml:"mode"` // command, raw
	Command string        `yaml:"command"`
	Args    []string      `yaml:"args"`
	Address string        `yaml:"address"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used for any key the file omits
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  32 << 20,
		},
		Database: DatabaseConfig{
			Port:            5432,
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnectRetries:  3,
			RetryInterval:   2 * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			Port:  5672,
			VHost: "/",
			Exchange: ExchangeConfig{
				Type:    "direct",
				Durable: true,
			},
			Queue: QueueConfig{
				Durable: true,
			},
			Connection: ConnectionConfig{
				RetryAttempts: 5,
				RetryInterval: 2 * time.Second,
				Heartbeat:     10 * time.Second,
			},
			Publish: PublishConfig{
				RetryAttempts:     3,
				RetryInterval:     100 * time.Millisecond,
				BackoffMultiplier: 2.0,
			},
			Consumer: ConsumerConfig{
				Tag:           "print-service",
				PrefetchCount: 10,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		App: AppConfig{
			Name:        "print-service",
			Environment: "development",
		},
		Shop: ShopConfig{
			DownloadDir:    "downloads",
			StagingDir:     "printed",
			RetentionHours: 24,
			PricePerPage:   decimal.RequireFromString("0.50"),
		},
		Workflow: WorkflowConfig{
			NotifyDelay:     30 * time.Second,
			CompletionGrace: time.Minute,
			PrintPacing:     2 * time.Second,
			SweepInterval:   time.Hour,
		},
		Worker: WorkerConfig{
			Concurrency:     1,
			QueueSize:       16,
			ShutdownTimeout: 30 * time.Second,
		},
		Printer: PrinterConfig{
			Mode:    "command",
			Command: "lp",
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads and parses the configuration file on top of the defaults
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	return config, nil
}

// applyEnv lets secrets come from the environment (or .env) instead of the file
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabasePassword); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(EnvRabbitPassword); v != "" {
		c.RabbitMQ.Password = v
	}
	if v := os.Getenv(EnvOwnerID); v != "" {
		c.Shop.OwnerID = v
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	if c.Database.Enabled {
		if err := c.validateDatabase(); err != nil {
			return err
		}
	}

	if err := c.validateShop(); err != nil {
		return err
	}

	if c.Workflow.NotifyDelay <= 0 {
		return fmt.Errorf("workflow notify_delay must be greater than 0")
	}

	if c.Workflow.CompletionGrace <= 0 {
		return fmt.Errorf("workflow completion_grace must be greater than 0")
	}

	if c.Workflow.PrintPacing < 0 {
		return fmt.Errorf("workflow print_pacing must not be negative")
	}

	if c.Workflow.SweepInterval <= 0 {
		return fmt.Errorf("workflow sweep_interval must be greater than 0")
	}

	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	switch c.Printer.Mode {
	case "command":
		if c.Printer.Command == "" {
			return fmt.Errorf("printer command is required in command mode")
		}
	case "raw":
		if c.Printer.Address == "" {
			return fmt.Errorf("printer address is required in raw mode")
		}
	default:
		return fmt.Errorf("invalid printer mode: %q (must be command or raw)", c.Printer.Mode)
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.RabbitMQ.PublishRoutingKey == "" {
		return fmt.Errorf("rabbitmq publish_routing_key is required")
	}

	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateShop() error {
	if c.Shop.DownloadDir == "" {
		return fmt.Errorf("shop download_dir is required")
	}

	if c.Shop.StagingDir == "" {
		return fmt.Errorf("shop staging_dir is required")
	}

	if c.Shop.RetentionHours <= 0 {
		return fmt.Errorf("shop retention_hours must be greater than 0")
	}

	if !c.Shop.PricePerPage.IsPositive() {
		return fmt.Errorf("shop price_per_page must be greater than 0")
	}

	if c.Shop.NotifyOwner && c.Shop.OwnerID == "" {
		return fmt.Errorf("shop owner_id is required when notify_owner is enabled")
	}

	return nil
}
