package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Engine  EngineConfig
	Corpus  CorpusConfig
	Redis   RedisConfig
	Storage StorageConfig
	Rules   RulesConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type EngineConfig struct {
	// TimeoutSec bounds one analysis run; zero means no deadline.
	TimeoutSec            int
	GapTokens             int
	TolerateCorpusFailure bool
}

type CorpusConfig struct {
	// Backend is one of memory, sqlite or redis.
	Backend          string
	TimeoutMs        int
	MaxAttempts      int
	FailureThreshold int
	CooldownSec      int
	RateLimit        float64
	Burst            int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type StorageConfig struct {
	// DataDir holds sqlite databases and JSON reports; empty selects the
	// default workspace directory.
	DataDir string
	Persist bool
}

type RulesConfig struct {
	Path string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

// Load reads veritext.yaml (or the file at path when set) and VERITEXT_*
// environment variables on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("veritext")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/veritext")
	}

	v.SetEnvPrefix("VERITEXT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Corpus.Backend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown corpus backend %q", c.Corpus.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.bodyLimit", 4*1024*1024)

	v.SetDefault("engine.timeoutSec", 60)
	v.SetDefault("engine.gapTokens", 3)
	v.SetDefault("engine.tolerateCorpusFailure", false)

	v.SetDefault("corpus.backend", "sqlite")
	v.SetDefault("corpus.timeoutMs", 2000)
	v.SetDefault("corpus.maxAttempts", 3)
	v.SetDefault("corpus.failureThreshold", 5)
	v.SetDefault("corpus.cooldownSec", 30)
	v.SetDefault("corpus.rateLimit", 0)
	v.SetDefault("corpus.burst", 50)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "veritext")

	v.SetDefault("storage.dataDir", "")
	v.SetDefault("storage.persist", true)

	v.SetDefault("rules.path", "")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.outputPath", "stderr")
}
