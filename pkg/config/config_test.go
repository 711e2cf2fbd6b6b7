package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LuisDaniel15/Software-Pos/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("FACTUS_ENVIRONMENT", "dev")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.True(t, cfg.Factus.Simulated())
	assert.Equal(t, 30*time.Second, cfg.Factus.Timeout())
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, 30*time.Second, cfg.Settlement.RetryLockTTL())
	assert.Equal(t, 8080, cfg.HTTP.Port)
}

func TestLoad_LeeVariablesDeEntorno(t *testing.T) {
	t.Setenv("FACTUS_ENVIRONMENT", "sandbox")
	t.Setenv("FACTUS_CLIENT_ID", "client-1")
	t.Setenv("FACTUS_USERNAME", "sandbox@factus.com.co")
	t.Setenv("FACTUS_TIMEOUT_SECONDS", "12")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SETTLEMENT_RETRY_LOCK_SECONDS", "45")
	t.Setenv("HTTP_PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.Factus.Simulated())
	assert.Equal(t, 12*time.Second, cfg.Factus.Timeout())
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 45*time.Second, cfg.Settlement.RetryLockTTL())
	assert.Equal(t, "0.0.0.0:9090", cfg.HTTP.Addr())
}

func TestLoad_AmbienteInvalido(t *testing.T) {
	t.Setenv("FACTUS_ENVIRONMENT", "staging")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_SandboxSinCredenciales(t *testing.T) {
	t.Setenv("FACTUS_ENVIRONMENT", "sandbox")
	t.Setenv("FACTUS_CLIENT_ID", "")
	t.Setenv("FACTUS_USERNAME", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestDSN_CodificaContrasena(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "pos", Password: "p@ss/word", DBName: "pos", SSLMode: "disable"}
	assert.Equal(t, "postgres://pos:p%40ss%2Fword@db:5432/pos?sslmode=disable", c.ConnectionString())
}
