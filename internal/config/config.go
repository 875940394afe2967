// Package config provides configuration management using Viper.
// It loads configuration from environment variables, .env files, and config files.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultProviderName     = "lguplus"
	defaultChannelsURL      = "https://www.lguplus.com/uhdc/fo/prdv/chnlgid/v1/tv-channel-list"
	defaultScheduleURL      = "https://www.lguplus.com/uhdc/fo/prdv/chnlgid/v1/tv-schedule-list"
	defaultFetchLimit       = 2
	defaultParallel         = 1
	defaultFetchTimeout     = 10 * time.Second
	defaultUserAgent        = "UnityPlayer/2021.3.18f1 (UnityWebRequest/1.0)"
	defaultUnityVersion     = "2021.3.18f1"
	defaultAcceptLanguage   = "ko-KR,en-US;q=0.8"
	defaultReferer          = "https://www.lguplus.com/"
	defaultRateLimit        = 5.0
	defaultRateBurst        = 1
	defaultCircuitThreshold = 5
	defaultCircuitReset     = 30 * time.Second
	defaultChannelFile      = "./data/channels.json"
	defaultIDFormat         = "{ServiceId}.{Source}"

	defaultServerPort                = 8080
	defaultServerHost                = "0.0.0.0"
	defaultReadTimeout               = 30 * time.Second
	defaultWriteTimeout              = 60 * time.Second
	defaultDatabasePath              = "./data/epgrab.db"
	defaultDatabaseConnectionTimeout = 5 * time.Second
	defaultDatabaseEnableWAL         = true
	defaultMigrationsPath            = "file://./migrations"
	defaultCacheTTL                  = 10 * time.Minute
	defaultCacheLockTTL              = 30 * time.Minute
	defaultLogLevel                  = "info"
	defaultLogPretty                 = false
	envPrefix                        = "EPGRAB"
)

// Config holds all application configuration
type Config struct {
	Provider  ProviderConfig
	Transport TransportConfig
	Channels  ChannelsConfig
	Output    OutputConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Server    ServerConfig
	Logging   LoggingConfig
}

// ProviderConfig holds the upstream EPG endpoints and the fetch window
type ProviderConfig struct {
	// Name selects the registered provider.
	Name        string
	ChannelsURL string
	ScheduleURL string
	// FetchLimit is the number of days, starting today, fetched per channel.
	FetchLimit int
	// Parallel is the number of channels fetched concurrently. 1 is sequential.
	Parallel int
}

// TransportConfig controls how the upstream API is called
type TransportConfig struct {
	Timeout          time.Duration
	UserAgent        string
	UnityVersion     string
	AcceptLanguage   string
	Referer          string
	RateLimit        float64
	RateBurst        int
	CircuitThreshold int
	CircuitReset     time.Duration
}

// ChannelsConfig selects which service channels are fetched and how they are named
type ChannelsConfig struct {
	File      string
	Requested []string
	IDFormat  string
}

// OutputConfig holds XMLTV output settings. XMLFile wins over XMLSock, and
// with neither set the guide goes to stdout.
type OutputConfig struct {
	XMLFile string
	XMLSock string
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Enabled           bool
	Path              string
	ConnectionTimeout time.Duration
	EnableWAL         bool
	MigrationsPath    string
}

// CacheConfig holds the optional Redis guide cache settings. An empty URL disables it.
type CacheConfig struct {
	URL string
	TTL time.Duration
	// LockTTL bounds how long an ingest run lock is held in Redis.
	LockTTL time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int
	Host         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Pretty bool
}

// Load reads configuration from .env file, config files, environment variables, and defaults
func Load() (*Config, error) {
	return load("")
}

// LoadFile is Load with an explicit config file instead of the search path
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	// .env files are optional in production and CI where env vars are set directly
	_ = godotenv.Load() // nolint:errcheck // .env file is optional

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/epgrab")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.name", defaultProviderName)
	v.SetDefault("provider.channelsurl", defaultChannelsURL)
	v.SetDefault("provider.scheduleurl", defaultScheduleURL)
	v.SetDefault("provider.fetchlimit", defaultFetchLimit)
	v.SetDefault("provider.parallel", defaultParallel)

	v.SetDefault("transport.timeout", defaultFetchTimeout)
	v.SetDefault("transport.useragent", defaultUserAgent)
	v.SetDefault("transport.unityversion", defaultUnityVersion)
	v.SetDefault("transport.acceptlanguage", defaultAcceptLanguage)
	v.SetDefault("transport.referer", defaultReferer)
	v.SetDefault("transport.ratelimit", defaultRateLimit)
	v.SetDefault("transport.rateburst", defaultRateBurst)
	v.SetDefault("transport.circuitthreshold", defaultCircuitThreshold)
	v.SetDefault("transport.circuitreset", defaultCircuitReset)

	v.SetDefault("channels.file", defaultChannelFile)
	v.SetDefault("channels.requested", []string{})
	v.SetDefault("channels.idformat", defaultIDFormat)

	v.SetDefault("output.xmlfile", "")
	v.SetDefault("output.xmlsock", "")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.path", defaultDatabasePath)
	v.SetDefault("database.connectiontimeout", defaultDatabaseConnectionTimeout)
	v.SetDefault("database.enablewal", defaultDatabaseEnableWAL)
	v.SetDefault("database.migrationspath", defaultMigrationsPath)

	v.SetDefault("cache.url", "")
	v.SetDefault("cache.ttl", defaultCacheTTL)
	v.SetDefault("cache.lockttl", defaultCacheLockTTL)

	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.host", defaultServerHost)
	v.SetDefault("server.readtimeout", defaultReadTimeout)
	v.SetDefault("server.writetimeout", defaultWriteTimeout)

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.pretty", defaultLogPretty)
}

// Validate checks that configuration values are valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Provider.Name) == "" {
		return errors.New("provider name is required")
	}
	if strings.TrimSpace(c.Provider.ChannelsURL) == "" {
		return errors.New("provider channels url is required")
	}
	if strings.TrimSpace(c.Provider.ScheduleURL) == "" {
		return errors.New("provider schedule url is required")
	}
	if c.Provider.FetchLimit < 1 || c.Provider.FetchLimit > 7 {
		return fmt.Errorf("invalid fetch limit: %d (must be between 1 and 7)", c.Provider.FetchLimit)
	}
	if c.Provider.Parallel < 1 {
		return fmt.Errorf("invalid parallel: %d (must be >= 1)", c.Provider.Parallel)
	}

	if c.Transport.Timeout <= 0 {
		return fmt.Errorf("invalid transport timeout: %v (must be > 0)", c.Transport.Timeout)
	}
	if c.Transport.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %v (must be >= 0)", c.Transport.RateLimit)
	}
	if c.Transport.CircuitThreshold < 1 {
		return fmt.Errorf("invalid circuit threshold: %d (must be >= 1)", c.Transport.CircuitThreshold)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("invalid read timeout: %v (must be > 0)", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("invalid write timeout: %v (must be > 0)", c.Server.WriteTimeout)
	}
	if c.Database.ConnectionTimeout <= 0 {
		return fmt.Errorf("invalid database connection timeout: %v (must be > 0)", c.Database.ConnectionTimeout)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.Logging.Level, strings.Join(validLevels, ", "))
	}

	return nil
}

// contains checks if a string slice contains a specific value
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
