package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
storage:
  backend: "postgres"
database:
  host: "localhost"
  port: 5432
  username: "u"
  password: "p"
  name: "db"
kafka:
  host: "localhost"
  port: 9092
  shipment_changed_topic_name: "shipment.changed"
redis:
  host: "localhost"
  port: 6379
events:
  broker: "kafka"
trackingmore:
  api_key: "from-file"
  timeout_seconds: 15
shiptrack:
  grpc_addr: ":50051"
  http_addr: ":8080"
  jwt_secret: "file-secret"
  refresh_concurrency: 4
`), 0o600))

	t.Setenv("TRACKINGMORE_API_KEY", "")
	t.Setenv("SHIPTRACK_JWT_SECRET", "")

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "postgres", cfg.Storage.Backend)
	require.Equal(t, "u", cfg.Database.Username)
	require.Equal(t, "shipment.changed", cfg.Kafka.ShipmentChangedTopicName)
	require.Equal(t, 6379, cfg.Redis.Port)
	require.Equal(t, ":8080", cfg.ShipTrack.HTTPAddr)
	require.Equal(t, "from-file", cfg.TrackingMore.APIKey)
	require.Equal(t, 4, cfg.ShipTrack.RefreshConcurrency)
	require.Equal(t, "postgres://u:p@localhost:5432/db?sslmode=disable", cfg.PostgresConnString())
	require.Equal(t, "localhost:6379", cfg.RedisAddr())
	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers())
}

func TestLoadConfig_EnvOverridesSecrets(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
trackingmore:
  api_key: "from-file"
shiptrack:
  jwt_secret: "file-secret"
`), 0o600))

	t.Setenv("TRACKINGMORE_API_KEY", "env-key")
	t.Setenv("SHIPTRACK_JWT_SECRET", "env-secret")

	cfg, err := LoadConfig(p)
	require.NoError(t, err)
	require.Equal(t, "env-key", cfg.TrackingMore.APIKey)
	require.Equal(t, "env-secret", cfg.ShipTrack.JWTSecret)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(p, []byte("SHIPTRACK_TEST_LOADENV=loaded\n"), 0o600))
	t.Setenv("SHIPTRACK_TEST_LOADENV", "")
	require.NoError(t, os.Unsetenv("SHIPTRACK_TEST_LOADENV"))

	require.NoError(t, LoadEnv(p, filepath.Join(dir, "missing.env")))
	require.Equal(t, "loaded", os.Getenv("SHIPTRACK_TEST_LOADENV"))
}

func TestLoadConfig_Example(t *testing.T) {
	t.Setenv("TRACKINGMORE_API_KEY", "")
	t.Setenv("SHIPTRACK_JWT_SECRET", "")

	cfg, err := LoadConfig(filepath.Join("..", "config.example.yaml"))
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Storage.Backend)
	require.Equal(t, "none", cfg.Events.Broker)
	require.Equal(t, "bcrypt", cfg.ShipTrack.PasswordHasher)
	require.Equal(t, 86400, cfg.ShipTrack.WorkerNextCheckFinalSeconds)
}
