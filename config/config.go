package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http" envconfig:"HTTP"`
	GRPC      GRPCConfig      `yaml:"grpc" envconfig:"GRPC"`
	Database  DatabaseConfig  `yaml:"database" envconfig:"DB"`
	Redis     RedisConfig     `yaml:"redis" envconfig:"REDIS"`
	Events    EventsConfig    `yaml:"events" envconfig:"EVENTS"`
	Booking   BookingConfig   `yaml:"booking" envconfig:"BOOKING"`
	Payment   PaymentConfig   `yaml:"payment" envconfig:"PAYMENT"`
	Omise     OmiseConfig     `yaml:"omise" envconfig:"OMISE"`
	JWT       JWTConfig       `yaml:"jwt" envconfig:"JWT"`
	Scheduler SchedulerConfig `yaml:"scheduler" envconfig:"SCHEDULER"`
	Log       LogConfig       `yaml:"log" envconfig:"LOG"`
	Tracing   TracingConfig   `yaml:"tracing" envconfig:"TRACING"`
}

type HTTPConfig struct {
	Address    string `yaml:"address" envconfig:"ADDRESS"`
	SwaggerDir string `yaml:"swagger_dir" envconfig:"SWAGGER_DIR"`
}

type GRPCConfig struct {
	Address string `yaml:"address" envconfig:"ADDRESS"`
}

type DatabaseConfig struct {
	Host         string `yaml:"host" envconfig:"HOST"`
	Port         int    `yaml:"port" envconfig:"PORT"`
	User         string `yaml:"user" envconfig:"USER"`
	Password     string `yaml:"password" envconfig:"PASSWORD"`
	Name         string `yaml:"name" envconfig:"NAME"`
	SSLMode      string `yaml:"ssl_mode" envconfig:"SSL_MODE"`
	MaxOpenConns int    `yaml:"max_open_conns" envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"max_idle_conns" envconfig:"MAX_IDLE_CONNS"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"ADDR"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db" envconfig:"DB"`
}

const (
	BrokerNone     = "none"
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
)

type EventsConfig struct {
	Broker   string         `yaml:"broker" envconfig:"BROKER"`
	Kafka    KafkaConfig    `yaml:"kafka" envconfig:"KAFKA"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq" envconfig:"RABBITMQ"`
}

// NotificationsTopic is the Kafka topic, or the routing key on RabbitMQ.
func (e EventsConfig) NotificationsTopic() string {
	return e.Kafka.NotificationsTopic
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers" envconfig:"BROKERS"`
	NotificationsTopic string   `yaml:"notifications_topic" envconfig:"NOTIFICATIONS_TOPIC"`
	GroupID            string   `yaml:"group_id" envconfig:"GROUP_ID"`
}

type RabbitMQConfig struct {
	URL      string `yaml:"url" envconfig:"URL"`
	Exchange string `yaml:"exchange" envconfig:"EXCHANGE"`
	Queue    string `yaml:"queue" envconfig:"QUEUE"`
}

type BookingConfig struct {
	SlotCacheTTLSeconds int `yaml:"slot_cache_ttl_seconds" envconfig:"SLOT_CACHE_TTL_SECONDS"`
}

func (b BookingConfig) SlotCacheTTL() time.Duration {
	return time.Duration(b.SlotCacheTTLSeconds) * time.Second
}

type PaymentConfig struct {
	TimeoutMinutes        int    `yaml:"timeout_minutes" envconfig:"TIMEOUT_MINUTES"`
	Currency              string `yaml:"currency" envconfig:"CURRENCY"`
	GatewayTimeoutSeconds int    `yaml:"gateway_timeout_seconds" envconfig:"GATEWAY_TIMEOUT_SECONDS"`
}

func (p PaymentConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMinutes) * time.Minute
}

func (p PaymentConfig) GatewayTimeout() time.Duration {
	return time.Duration(p.GatewayTimeoutSeconds) * time.Second
}

type OmiseConfig struct {
	PublicKey string `yaml:"public_key" envconfig:"PUBLIC_KEY"`
	SecretKey string `yaml:"secret_key" envconfig:"SECRET_KEY"`
}

type JWTConfig struct {
	Secret string `yaml:"secret" envconfig:"SECRET"`
}

type SchedulerConfig struct {
	SweepExpiredPayments string `yaml:"sweep_expired_payments" envconfig:"SWEEP_EXPIRED_PAYMENTS"`
}

type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

type TracingConfig struct {
	Endpoint    string `yaml:"endpoint" envconfig:"ENDPOINT"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
}

// LoadConfig reads the YAML file, applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply env overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate fills defaults and rejects settings the services cannot run with.
func (c *Config) Validate() error {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	switch c.Events.Broker {
	case "":
		c.Events.Broker = BrokerNone
	case BrokerNone:
	case BrokerKafka:
		if len(c.Events.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when events.broker is kafka")
		}
	case BrokerRabbitMQ:
		if c.Events.RabbitMQ.URL == "" {
			return fmt.Errorf("rabbitmq url is required when events.broker is rabbitmq")
		}
	default:
		return fmt.Errorf("unknown events broker %q", c.Events.Broker)
	}
	if c.Events.Kafka.NotificationsTopic == "" {
		c.Events.Kafka.NotificationsTopic = "court-booking.notifications"
	}
	if c.Events.Kafka.GroupID == "" {
		c.Events.Kafka.GroupID = "court-booking-worker"
	}
	if c.Events.RabbitMQ.Exchange == "" {
		c.Events.RabbitMQ.Exchange = "court-booking.events"
	}
	if c.Events.RabbitMQ.Queue == "" {
		c.Events.RabbitMQ.Queue = "court-booking.notifications.q"
	}

	if c.Booking.SlotCacheTTLSeconds == 0 {
		c.Booking.SlotCacheTTLSeconds = 30
	}

	if c.Payment.TimeoutMinutes == 0 {
		c.Payment.TimeoutMinutes = 15
	}
	if c.Payment.TimeoutMinutes < 0 {
		return fmt.Errorf("invalid payment timeout: %d minutes", c.Payment.TimeoutMinutes)
	}
	if c.Payment.Currency == "" {
		c.Payment.Currency = "THB"
	}
	if c.Payment.GatewayTimeoutSeconds <= 0 {
		c.Payment.GatewayTimeoutSeconds = 15
	}

	if c.JWT.Secret != "" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if c.Scheduler.SweepExpiredPayments == "" {
		c.Scheduler.SweepExpiredPayments = "0 * * * * *" // every minute
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "court-booking"
	}

	return nil
}
