package config

import (
	"fmt"
	"net/url"
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
	Storage    StorageConfig
	Production ProductionConfig
	Remote     RemoteConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// LogConfig nivel de log (trace, debug, info, warn, error).
type LogConfig struct {
	Level string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN arma el connection string con URL encoding (la contraseña puede traer caracteres especiales).
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

// Drivers de almacenamiento soportados.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// StorageConfig selecciona el adaptador de persistencia del backend.
type StorageConfig struct {
	Driver string
}

// ProductionConfig parámetros del dominio de producción.
type ProductionConfig struct {
	// Timezone zona IANA en la que se interpretan las fechas de calendario de los registros.
	Timezone string
}

// Location resuelve Timezone; vacío usa UTC.
func (c ProductionConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("PRODUCTION_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// RemoteConfig backend de registros consumido por el cliente (cmd/recordctl).
type RemoteConfig struct {
	BaseURL   string
	Token     string
	CompanyID string
	Timeout   time.Duration
	Retries   int
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde .env / config.env).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, JWT_SECRET, STORAGE_DRIVER, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // opcional

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.MergeInConfig() // opcional

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:  v.GetString("APP_ENV"),
			Name: v.GetString("APP_NAME"),
		},
		Log: LogConfig{Level: v.GetString("LOG_LEVEL")},
		DB: DBConfig{
			DatabaseURL: v.GetString("DATABASE_URL"),
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetInt("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			DBName:      v.GetString("DB_NAME"),
			SSLMode:     v.GetString("DB_SSLMODE"),
		},
		JWT: JWTConfig{
			Secret:     v.GetString("JWT_SECRET"),
			Expiration: v.GetInt("JWT_EXPIRATION_MINUTES"),
			Issuer:     v.GetString("JWT_ISSUER"),
		},
		HTTP: HTTPConfig{
			Host: v.GetString("HTTP_HOST"),
			Port: v.GetInt("HTTP_PORT"),
		},
		Storage:    StorageConfig{Driver: strings.ToLower(v.GetString("STORAGE_DRIVER"))},
		Production: ProductionConfig{Timezone: v.GetString("PRODUCTION_TIMEZONE")},
		Remote: RemoteConfig{
			BaseURL:   v.GetString("REMOTE_BASE_URL"),
			Token:     v.GetString("REMOTE_TOKEN"),
			CompanyID: v.GetString("REMOTE_COMPANY_ID"),
			Timeout:   time.Duration(v.GetInt("REMOTE_TIMEOUT_SECONDS")) * time.Second,
			Retries:   v.GetInt("REMOTE_RETRIES"),
		},
	}

	switch cfg.Storage.Driver {
	case StoragePostgres, StorageMemory:
	default:
		return nil, fmt.Errorf("STORAGE_DRIVER %q no soportado (postgres|memory)", cfg.Storage.Driver)
	}
	if cfg.Remote.Retries < 0 {
		return nil, fmt.Errorf("REMOTE_RETRIES no puede ser negativo")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "produccion-pesquera")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_NAME", "produccion_pesquera")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("JWT_EXPIRATION_MINUTES", 60)
	v.SetDefault("JWT_ISSUER", "produccion-pesquera")

	v.SetDefault("HTTP_HOST", "0.0.0.0")
	v.SetDefault("HTTP_PORT", 8080)

	v.SetDefault("STORAGE_DRIVER", StoragePostgres)
	v.SetDefault("PRODUCTION_TIMEZONE", "America/Bogota")

	v.SetDefault("REMOTE_BASE_URL", "http://localhost:8080")
	v.SetDefault("REMOTE_TIMEOUT_SECONDS", 15)
	v.SetDefault("REMOTE_RETRIES", 2)
}
