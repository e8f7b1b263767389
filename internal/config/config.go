package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Broker   BrokerConfig   `yaml:"broker"`
	Session  SessionConfig  `yaml:"session"`
	Order    OrderConfig    `yaml:"order"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Station  StationConfig  `yaml:"station"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"name"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
	Exchange string `yaml:"exchange"`
}

type SessionConfig struct {
	TTL               time.Duration `yaml:"ttl"`
	PasswordCost      int           `yaml:"passwordCost"`
	BootstrapAdmin    string        `yaml:"bootstrapAdmin"`
	BootstrapPassword string        `yaml:"bootstrapPassword"`
}

type OrderConfig struct {
	IdempotencyTTL  time.Duration `yaml:"idempotencyTTL"`
	MaxItems        int           `yaml:"maxItems"`
	PublishAttempts int           `yaml:"publishAttempts"`
}

type RealtimeConfig struct {
	Group          string        `yaml:"group"`
	InitialBackoff time.Duration `yaml:"initialBackoff"`
	MaxBackoff     time.Duration `yaml:"maxBackoff"`
	PollInterval   time.Duration `yaml:"pollInterval"`
}

type StationConfig struct {
	Port     int    `yaml:"port"`
	APIURL   string `yaml:"apiURL"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	SpoolDir string `yaml:"spoolDir"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	// Encoding is "json" or "console".
	Encoding string `yaml:"encoding"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            5000,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            3306,
			User:            "comanda",
			Password:        "secret",
			Name:            "comanda",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Broker: BrokerConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			VHost:    "/",
			Exchange: "comanda.orders",
		},
		Session: SessionConfig{TTL: 12 * time.Hour, PasswordCost: 10},
		Order:   OrderConfig{IdempotencyTTL: 24 * time.Hour, MaxItems: 100, PublishAttempts: 3},
		Realtime: RealtimeConfig{
			Group:          "admin",
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     30 * time.Second,
			PollInterval:   2 * time.Second,
		},
		Station: StationConfig{
			Port:     8081,
			APIURL:   "http://localhost:5000",
			SpoolDir: "",
		},
		Log: LogConfig{Level: "info", Encoding: "json"},
	}
}

// flagKeys maps command-line flags to the environment keys they override.
var flagKeys = map[string]string{
	"port":         "SERVER_PORT",
	"log-level":    "LOG_LEVEL",
	"log-encoding": "LOG_ENCODING",
	"station-port": "STATION_PORT",
	"api-url":      "STATION_API_URL",
	"username":     "STATION_USERNAME",
	"password":     "STATION_PASSWORD",
	"spool-dir":    "STATION_SPOOL_DIR",
}

// ApplyEnv overlays environment variables, and changed flags when a flag set
// is given, on top of cfg. Flags win over the environment.
func ApplyEnv(cfg *Config, flags *pflag.FlagSet) error {
	v := viper.New()
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", name, err)
			}
		}
	}

	setInt(v, "SERVER_PORT", &cfg.Server.Port)
	setString(v, "DB_HOST", &cfg.Database.Host)
	setInt(v, "DB_PORT", &cfg.Database.Port)
	setString(v, "DB_USER", &cfg.Database.User)
	setString(v, "DB_PASSWORD", &cfg.Database.Password)
	setString(v, "DB_NAME", &cfg.Database.Name)
	setInt(v, "DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	setInt(v, "DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	setString(v, "REDIS_ADDR", &cfg.Redis.Addr)
	setString(v, "REDIS_PASSWORD", &cfg.Redis.Password)
	setInt(v, "REDIS_DB", &cfg.Redis.DB)
	setString(v, "BROKER_HOST", &cfg.Broker.Host)
	setInt(v, "BROKER_PORT", &cfg.Broker.Port)
	setString(v, "BROKER_USER", &cfg.Broker.User)
	setString(v, "BROKER_PASSWORD", &cfg.Broker.Password)
	setString(v, "BROKER_VHOST", &cfg.Broker.VHost)
	setString(v, "BROKER_EXCHANGE", &cfg.Broker.Exchange)
	setInt(v, "SESSION_PASSWORD_COST", &cfg.Session.PasswordCost)
	setString(v, "SESSION_BOOTSTRAP_ADMIN", &cfg.Session.BootstrapAdmin)
	setString(v, "SESSION_BOOTSTRAP_PASSWORD", &cfg.Session.BootstrapPassword)
	setInt(v, "ORDER_MAX_ITEMS", &cfg.Order.MaxItems)
	setInt(v, "ORDER_PUBLISH_ATTEMPTS", &cfg.Order.PublishAttempts)
	setString(v, "REALTIME_GROUP", &cfg.Realtime.Group)
	setInt(v, "STATION_PORT", &cfg.Station.Port)
	setString(v, "STATION_API_URL", &cfg.Station.APIURL)
	setString(v, "STATION_USERNAME", &cfg.Station.Username)
	setString(v, "STATION_PASSWORD", &cfg.Station.Password)
	setString(v, "STATION_SPOOL_DIR", &cfg.Station.SpoolDir)
	setString(v, "LOG_LEVEL", &cfg.Log.Level)
	setString(v, "LOG_ENCODING", &cfg.Log.Encoding)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout},
		{"DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime},
		{"SESSION_TTL", &cfg.Session.TTL},
		{"ORDER_IDEMPOTENCY_TTL", &cfg.Order.IdempotencyTTL},
		{"REALTIME_INITIAL_BACKOFF", &cfg.Realtime.InitialBackoff},
		{"REALTIME_MAX_BACKOFF", &cfg.Realtime.MaxBackoff},
		{"REALTIME_POLL_INTERVAL", &cfg.Realtime.PollInterval},
	}
	for _, d := range durations {
		if !v.IsSet(d.key) {
			continue
		}
		parsed, err := time.ParseDuration(v.GetString(d.key))
		if err != nil {
			return fmt.Errorf("parsing %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	return nil
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func setInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		*dst = v.GetInt(key)
	}
}
