package app

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/blockstore/internal/platform/envutil"
	"github.com/yungbote/blockstore/internal/platform/logger"
)

// Config is the process configuration. A YAML file (CONFIG_PATH) supplies the
// base; environment variables override individual values, so deployments can
// ship a checked-in file and tweak per environment.
type Config struct {
	HandlerSecret string `yaml:"handler_secret"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	StructureCacheTTLMinutes int `yaml:"structure_cache_ttl_minutes"`

	EventSampleWindowSeconds int `yaml:"event_sample_window_seconds"`
	EventSampleBurst         int `yaml:"event_sample_burst"`
	EventSampleRate          int `yaml:"event_sample_rate"`

	// XMLCourseRoot points at a directory of legacy OLX course exports to
	// serve read-only. Empty disables the XML backend.
	XMLCourseRoot string `yaml:"xml_course_root"`
}

func (c Config) StructureCacheTTL() time.Duration {
	return time.Duration(c.StructureCacheTTLMinutes) * time.Minute
}

func (c Config) EventSampleWindow() time.Duration {
	return time.Duration(c.EventSampleWindowSeconds) * time.Second
}

func LoadConfig(log *logger.Logger) Config {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("config file unreadable, using env and defaults", "path", path, "error", err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Warn("config file malformed, using env and defaults", "path", path, "error", err)
		}
	}

	cfg.HandlerSecret = envutil.GetEnv("HANDLER_SECRET", orDefault(cfg.HandlerSecret, "defaultsecret"), log)
	cfg.RedisAddr = envutil.GetEnv("REDIS_ADDR", cfg.RedisAddr, log)
	cfg.RedisPassword = envutil.GetEnv("REDIS_PASSWORD", cfg.RedisPassword, log)
	cfg.StructureCacheTTLMinutes = envutil.GetEnvAsInt("STRUCTURE_CACHE_TTL_MINUTES", orDefaultInt(cfg.StructureCacheTTLMinutes, 30), log)
	cfg.EventSampleWindowSeconds = envutil.GetEnvAsInt("EVENT_SAMPLE_WINDOW_SECONDS", orDefaultInt(cfg.EventSampleWindowSeconds, 60), log)
	cfg.EventSampleBurst = envutil.GetEnvAsInt("EVENT_SAMPLE_BURST", orDefaultInt(cfg.EventSampleBurst, 100), log)
	cfg.EventSampleRate = envutil.GetEnvAsInt("EVENT_SAMPLE_RATE", orDefaultInt(cfg.EventSampleRate, 10), log)
	cfg.XMLCourseRoot = envutil.GetEnv("XML_COURSE_ROOT", cfg.XMLCourseRoot, log)

	return cfg
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
