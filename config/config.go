package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Storage      StorageConfig      `yaml:"storage"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Mongo        MongoConfig        `yaml:"mongo"`
	SQLite       SQLiteConfig       `yaml:"sqlite"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Rabbit       RabbitConfig       `yaml:"rabbit"`
	Events       EventsConfig       `yaml:"events"`
	TrackingMore TrackingMoreConfig `yaml:"trackingmore"`
	ShipTrack    ShipTrackConfig    `yaml:"shiptrack"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"` // "memory" | "sqlite" | "postgres" | "redis" | "mongo"
	RedisPrefix string `yaml:"redis_prefix"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	ShipmentChangedTopicName string `yaml:"shipment_changed_topic_name"`
}

type RabbitConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
	Queue    string `yaml:"queue"`
}

type EventsConfig struct {
	Broker string `yaml:"broker"` // "none" | "kafka" | "rabbit"
}

type TrackingMoreConfig struct {
	BaseURL               string `yaml:"base_url"`
	APIKey                string `yaml:"api_key"`
	TimeoutSeconds        int    `yaml:"timeout_seconds"`
	StatusCacheTTLSeconds int    `yaml:"status_cache_ttl_seconds"`
	// Fake switches to the deterministic offline client.
	Fake bool `yaml:"fake"`
}

type ShipTrackConfig struct {
	GRPCAddr           string `yaml:"grpc_addr"`
	HTTPAddr           string `yaml:"http_addr"`
	JWTSecret          string `yaml:"jwt_secret"`
	TokenTTLMinutes    int    `yaml:"token_ttl_minutes"`
	PasswordHasher     string `yaml:"password_hasher"` // "bcrypt" | "legacy"
	SeedAdminEmail     string `yaml:"seed_admin_email"`
	SeedAdminPassword  string `yaml:"seed_admin_password"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	RefreshConcurrency    int `yaml:"refresh_concurrency"`
	RefreshTimeoutSeconds int `yaml:"refresh_timeout_seconds"`

	WorkerPollIntervalSeconds    int    `yaml:"worker_poll_interval_seconds"`
	WorkerRateLimitPerMinute     int    `yaml:"worker_rate_limit_per_minute"`
	WorkerHTTPAddr               string `yaml:"worker_http_addr"`
	WorkerNextCheckActiveSeconds int    `yaml:"worker_next_check_active_seconds"`
	WorkerNextCheckIdleSeconds   int    `yaml:"worker_next_check_idle_seconds"`
	WorkerNextCheckFinalSeconds  int    `yaml:"worker_next_check_final_seconds"`
}

// LoadEnv reads KEY=VALUE pairs from the given dotenv files into the process
// environment. Missing files are skipped; existing variables are never overwritten.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	config.applyEnv()

	return &config, nil
}

// Secrets may come from the environment instead of the checked-in file.
func (c *Config) applyEnv() {
	if v := os.Getenv("TRACKINGMORE_API_KEY"); v != "" {
		c.TrackingMore.APIKey = v
	}
	if v := os.Getenv("SHIPTRACK_JWT_SECRET"); v != "" {
		c.ShipTrack.JWTSecret = v
	}
}

// PostgresConnString builds the pgx connection string from the database section.
func (c *Config) PostgresConnString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.DBName, sslMode)
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c *Config) KafkaBrokers() []string {
	return []string{fmt.Sprintf("%s:%d", c.Kafka.Host, c.Kafka.Port)}
}
