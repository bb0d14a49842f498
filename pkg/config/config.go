package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Poller    PollerConfig
	Analysis  AnalysisConfig
	Redis     RedisConfig
	SQLite    SQLiteConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

// StoreConfig describes the external log store endpoint.
type StoreConfig struct {
	Endpoint     string
	APIKey       string
	TimeoutSec   int
	DefaultLimit int
	MaxLimit     int
}

// PollerConfig bounds the query polling loop. MaxAttempts applies to normal
// queries; BackfillMaxAttempts applies once the requested time range exceeds
// BackfillThresholdHours.
type PollerConfig struct {
	IntervalMS             int
	MaxAttempts            int
	BackfillMaxAttempts    int
	BackfillThresholdHours int
}

type AnalysisConfig struct {
	DedupWindowSec   int
	WindowDays       int
	EventMarker      string
	RequireRedaction bool
	RedactionMarker  string
	CacheTTLSec      int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type SQLiteConfig struct {
	Path string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/logsight")

	viper.SetEnvPrefix("LOGSIGHT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// PollInterval returns the polling interval as a duration.
func (c PollerConfig) PollInterval() time.Duration {
	return time.Duration(c.IntervalMS) * time.Millisecond
}

// DedupWindow returns the dedup window as a duration.
func (c AnalysisConfig) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowSec) * time.Second
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 60)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("store.endpoint", "http://localhost:9090")
	viper.SetDefault("store.timeoutSec", 10)
	viper.SetDefault("store.defaultLimit", 1000)
	viper.SetDefault("store.maxLimit", 10000)

	viper.SetDefault("poller.intervalMS", 1000)
	viper.SetDefault("poller.maxAttempts", 10)
	viper.SetDefault("poller.backfillMaxAttempts", 30)
	viper.SetDefault("poller.backfillThresholdHours", 24)

	viper.SetDefault("analysis.dedupWindowSec", 60)
	viper.SetDefault("analysis.windowDays", 7)
	viper.SetDefault("analysis.eventMarker", "createTreatment")
	viper.SetDefault("analysis.requireRedaction", true)
	viper.SetDefault("analysis.redactionMarker", "*")
	viper.SetDefault("analysis.cacheTTLSec", 300)

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("sqlite.path", "./data/logsight.db")

	viper.SetDefault("ratelimit.requestsPerMinute", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
