// Package config loads the demo server's configuration: listen address,
// per-task timeouts, and per-pool worker/queue ceilings. It replaces the
// teacher's hand-rolled getenvInt with a viper-backed loader that reads
// environment variables (with a TPOOL_ prefix) and an optional YAML file.
package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PoolConfig holds the worker and queue settings for one named task pool.
// router.New applies Workers as the pool's worker ceiling; Queue is loaded
// but not passed to tpool, whose ready-queue ceiling is tpool.MaxTasks.
type PoolConfig struct {
	Workers int
	Queue   int
}

// Config is the fully resolved configuration for cmd/tpooldemo.
type Config struct {
	ListenAddr string
	CPUTimeout time.Duration
	IOTimeout  time.Duration
	JobTTL     time.Duration

	Pools map[string]PoolConfig
}

var defaultPools = map[string]PoolConfig{
	"sleep":   {Workers: 2, Queue: 8},
	"spin":    {Workers: 2, Queue: 8},
	"isprime": {Workers: 2, Queue: 64},
	"factor":  {Workers: 2, Queue: 64},
}

// Load builds a Config from the environment (prefixed TPOOL_) and,
// optionally, a config file named by the TPOOL_CONFIG_FILE environment
// variable. Missing values fall back to sane defaults, same as the
// teacher's getenvInt did per-field.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("tpool")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("timeout_cpu", 60*time.Second)
	v.SetDefault("timeout_io", 120*time.Second)
	v.SetDefault("job_ttl", 10*time.Minute)
	for name, pc := range defaultPools {
		v.SetDefault("workers."+name, pc.Workers)
		v.SetDefault("queue."+name, pc.Queue)
	}

	if cf := v.GetString("config_file"); cf != "" {
		v.SetConfigFile(cf)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		ListenAddr: v.GetString("listen_addr"),
		CPUTimeout: v.GetDuration("timeout_cpu"),
		IOTimeout:  v.GetDuration("timeout_io"),
		JobTTL:     v.GetDuration("job_ttl"),
		Pools:      make(map[string]PoolConfig, len(defaultPools)),
	}
	for name := range defaultPools {
		cfg.Pools[name] = PoolConfig{
			Workers: v.GetInt("workers." + name),
			Queue:   v.GetInt("queue." + name),
		}
	}
	return cfg, nil
}
