package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App        AppConfig
	Log        LogConfig
	DB         DBConfig
	JWT        JWTConfig
	HTTP       HTTPConfig
	Factus     FactusConfig
	Redis      RedisConfig
	Settlement SettlementConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// LogConfig nivel y formato de los logs.
type LogConfig struct {
	Level  string
	Pretty bool
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL         string
	Host                string
	Port                int
	User                string
	Password            string
	DBName              string
	SSLMode             string
	MaxConns            int
	MinConns            int
	ConnLifetimeMinutes int // minutos
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN connection string con la contraseña codificada para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FactusConfig credenciales del proveedor de facturación electrónica.
// Environment "dev" usa el proveedor simulado; "sandbox" y "production" llaman a la API real.
type FactusConfig struct {
	Environment    string
	BaseURL        string
	ClientID       string
	ClientSecret   string
	Username       string
	Password       string
	TimeoutSeconds int
}

// Timeout duración máxima de una llamada al proveedor.
func (c FactusConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Simulated true cuando no se debe llamar al proveedor real.
func (c FactusConfig) Simulated() bool {
	return c.Environment == "dev"
}

// RedisConfig conexión opcional a Redis. Addr vacío la desactiva.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled hay un Redis configurado.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// SettlementConfig parámetros de la liquidación de ventas.
type SettlementConfig struct {
	RetryLockSeconds int
}

// RetryLockTTL vigencia del candado de reintento de una venta.
func (c SettlementConfig) RetryLockTTL() time.Duration {
	return time.Duration(c.RetryLockSeconds) * time.Second
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, JWT_SECRET, FACTUS_BASE_URL, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "software-pos"),
		},
		Log: LogConfig{
			Level:  getString(v, "LOG_LEVEL", "info"),
			Pretty: getBool(v, "LOG_PRETTY", false),
		},
		DB: DBConfig{
			DatabaseURL:         getString(v, "DATABASE_URL", ""),
			Host:                getString(v, "DB_HOST", "localhost"),
			Port:                getInt(v, "DB_PORT", 5432),
			User:                getString(v, "DB_USER", "postgres"),
			Password:            getString(v, "DB_PASSWORD", ""),
			DBName:              getString(v, "DB_NAME", "software_pos"),
			SSLMode:             getString(v, "DB_SSLMODE", "disable"),
			MaxConns:            getInt(v, "DB_MAX_CONNS", 25),
			MinConns:            getInt(v, "DB_MIN_CONNS", 2),
			ConnLifetimeMinutes: getInt(v, "DB_CONN_LIFETIME_MINUTES", 60),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "software-pos"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Factus: FactusConfig{
			Environment:    getString(v, "FACTUS_ENVIRONMENT", "dev"),
			BaseURL:        getString(v, "FACTUS_BASE_URL", "https://api-sandbox.factus.com.co"),
			ClientID:       getString(v, "FACTUS_CLIENT_ID", ""),
			ClientSecret:   getString(v, "FACTUS_CLIENT_SECRET", ""),
			Username:       getString(v, "FACTUS_USERNAME", ""),
			Password:       getString(v, "FACTUS_PASSWORD", ""),
			TimeoutSeconds: getInt(v, "FACTUS_TIMEOUT_SECONDS", 30),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		Settlement: SettlementConfig{
			RetryLockSeconds: getInt(v, "SETTLEMENT_RETRY_LOCK_SECONDS", 30),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Factus.Environment {
	case "dev", "sandbox", "production":
	default:
		return fmt.Errorf("FACTUS_ENVIRONMENT inválido: %q (dev, sandbox o production)", c.Factus.Environment)
	}
	if !c.Factus.Simulated() && (c.Factus.ClientID == "" || c.Factus.Username == "") {
		return fmt.Errorf("FACTUS_CLIENT_ID y FACTUS_USERNAME son obligatorios en %s", c.Factus.Environment)
	}
	if c.Factus.TimeoutSeconds <= 0 {
		return fmt.Errorf("FACTUS_TIMEOUT_SECONDS debe ser mayor a cero")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
