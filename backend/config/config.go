package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Server struct {
	Host string
	Port int
}

type DB struct {
	Driver string
	Host   string
	Port   int
	User   string
	Pass   string
	Name   string
	Path   string
}

type Redis struct {
	Addr string // empty disables the presence mirror
	Pass string
	DB   int
}

type JWT struct {
	Secret string
	Issuer string
	ExpMin int
}

// Dispatch holds the command subsystem's timing knobs.
type Dispatch struct {
	HeartbeatTimeout time.Duration
	SweepInterval    time.Duration
	AckTimeout       time.Duration
	RetryInterval    time.Duration
	MaxRetries       int
	QueueMax         int
}

type Config struct {
	Server   Server
	DB       DB
	Redis    Redis
	JWT      JWT
	Dispatch Dispatch
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("gateway.host", "127.0.0.1")
	v.SetDefault("gateway.port", 9300)
	v.SetDefault("gateway.db.driver", "mysql")
	v.SetDefault("gateway.db.host", "127.0.0.1")
	v.SetDefault("gateway.db.port", 3306)
	v.SetDefault("gateway.db.user", "root")
	v.SetDefault("gateway.db.pass", "")
	v.SetDefault("gateway.db.name", "robot_gateway")
	v.SetDefault("gateway.db.path", "robot-gateway.db")
	v.SetDefault("gateway.redis.addr", "")
	v.SetDefault("gateway.redis.pass", "")
	v.SetDefault("gateway.redis.db", 0)
	v.SetDefault("gateway.dispatch.heartbeat_timeout", "60s")
	v.SetDefault("gateway.dispatch.sweep_interval", "30s")
	v.SetDefault("gateway.dispatch.ack_timeout", "30s")
	v.SetDefault("gateway.dispatch.retry_interval", "5s")
	v.SetDefault("gateway.dispatch.max_retries", 3)
	v.SetDefault("gateway.dispatch.queue_max", 1000)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{
		Server: Server{Host: v.GetString("gateway.host"), Port: v.GetInt("gateway.port")},
		DB: DB{
			Driver: v.GetString("gateway.db.driver"),
			Host:   v.GetString("gateway.db.host"),
			Port:   v.GetInt("gateway.db.port"),
			User:   v.GetString("gateway.db.user"),
			Pass:   v.GetString("gateway.db.pass"),
			Name:   v.GetString("gateway.db.name"),
			Path:   v.GetString("gateway.db.path"),
		},
		Redis: Redis{
			Addr: v.GetString("gateway.redis.addr"),
			Pass: v.GetString("gateway.redis.pass"),
			DB:   v.GetInt("gateway.redis.db"),
		},
		Dispatch: Dispatch{
			HeartbeatTimeout: v.GetDuration("gateway.dispatch.heartbeat_timeout"),
			SweepInterval:    v.GetDuration("gateway.dispatch.sweep_interval"),
			AckTimeout:       v.GetDuration("gateway.dispatch.ack_timeout"),
			RetryInterval:    v.GetDuration("gateway.dispatch.retry_interval"),
			MaxRetries:       v.GetInt("gateway.dispatch.max_retries"),
			QueueMax:         v.GetInt("gateway.dispatch.queue_max"),
		},
	}
	cfg.JWT.Secret = v.GetString("gateway.jwt.secret")
	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = "dev-secret"
	}
	cfg.JWT.Issuer = v.GetString("gateway.jwt.issuer")
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "robot-gateway"
	}
	cfg.JWT.ExpMin = v.GetInt("gateway.jwt.exp_min")
	if cfg.JWT.ExpMin <= 0 {
		cfg.JWT.ExpMin = 60
	}
	return cfg, nil
}
