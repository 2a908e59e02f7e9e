package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. CONTENTPILOT_SERVER_PORT
const EnvPrefix = "CONTENTPILOT"

// Config holds every setting the binary needs
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	S3        S3Config        `mapstructure:"s3"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Notifier  NotifierConfig  `mapstructure:"notifier"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

type StorageConfig struct {
	// DSN is a sqlite path or "file:" URI. Empty selects the in-memory store.
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type S3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Profile      string `mapstructure:"profile"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	// PublicBaseURL overrides the virtual-hosted URL used for published images
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type KafkaConfig struct {
	Brokers      []string `mapstructure:"brokers"`
	RequestTopic string   `mapstructure:"request_topic"`
	UsageTopic   string   `mapstructure:"usage_topic"`
	GroupID      string   `mapstructure:"group_id"`
}

// Enabled reports whether any broker is configured
func (k KafkaConfig) Enabled() bool { return len(k.Brokers) > 0 }

type ProvidersConfig struct {
	Research ResearchConfig `mapstructure:"research"`
	Cohere   CohereConfig   `mapstructure:"cohere"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Image    ImageConfig    `mapstructure:"image"`
}

type ResearchConfig struct {
	// FeedSearchURL is a feed URL template; %s is replaced with the escaped topic
	FeedSearchURL string `mapstructure:"feed_search_url"`
	// Feeds are preset names (cna, st, hn, tr) or feed URLs scanned for the topic
	Feeds      []string `mapstructure:"feeds"`
	MaxSources int      `mapstructure:"max_sources"`
	// Extract fetches full article text for each source
	Extract bool `mapstructure:"extract"`
}

type CohereConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type ChatConfig struct {
	Endpoint     string  `mapstructure:"endpoint"`
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model"`
	RateLimit    float64 `mapstructure:"rate_limit"`
	SystemPrompt string  `mapstructure:"system_prompt"`
}

type ImageConfig struct {
	Endpoint  string  `mapstructure:"endpoint"`
	APIKey    string  `mapstructure:"api_key"`
	Model     string  `mapstructure:"model"`
	Size      string  `mapstructure:"size"`
	RateLimit float64 `mapstructure:"rate_limit"`
}

type PublisherConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	Username    string `mapstructure:"username"`
	AppPassword string `mapstructure:"app_password"`
}

type NotifierConfig struct {
	TelegramToken string `mapstructure:"telegram_token"`
}

type PipelineConfig struct {
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	ResearchTTL       time.Duration `mapstructure:"research_ttl"`
	RetryAttempts     int           `mapstructure:"retry_attempts"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay"`
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
}

type SchedulerConfig struct {
	Cron             string `mapstructure:"cron"`
	StrictValidation bool   `mapstructure:"strict_validation"`
}

// Load reads .env (if present), an optional YAML config file and
// CONTENTPILOT_* environment overrides, in increasing precedence.
func Load(path string) (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("contentpilot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("storage.dsn", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "contentpilot:cache")

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.prefix", "images")
	v.SetDefault("s3.use_path_style", false)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.request_topic", KafkaTopicGenerationRequests)
	v.SetDefault("kafka.usage_topic", KafkaTopicUsageEvents)
	v.SetDefault("kafka.group_id", KafkaConsumerGroupID)

	v.SetDefault("providers.research.feed_search_url", "https://news.google.com/rss/search?q=%s&hl=en-US&gl=US&ceid=US:en")
	v.SetDefault("providers.research.feeds", []string{})
	v.SetDefault("providers.research.max_sources", 3)
	v.SetDefault("providers.research.extract", true)
	v.SetDefault("providers.cohere.model", "command-r-plus")
	v.SetDefault("providers.chat.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("providers.chat.model", "gpt-4o-mini")
	v.SetDefault("providers.chat.rate_limit", 2.0)
	v.SetDefault("providers.image.endpoint", "https://api.openai.com/v1/images/generations")
	v.SetDefault("providers.image.model", "gpt-image-1")
	v.SetDefault("providers.image.size", "1536x1024")
	v.SetDefault("providers.image.rate_limit", 0.5)

	v.SetDefault("pipeline.call_timeout", DefaultCallTimeout)
	v.SetDefault("pipeline.research_ttl", ResearchTTL)
	v.SetDefault("pipeline.retry_attempts", ImageRetryAttempts)
	v.SetDefault("pipeline.retry_base_delay", ImageRetryBaseDelay)
	v.SetDefault("pipeline.max_concurrent_jobs", MaxConcurrentJobs)

	v.SetDefault("scheduler.cron", DefaultCronSchedule)
	v.SetDefault("scheduler.strict_validation", false)

	// Keys without a useful default still need registering so AutomaticEnv sees them
	for _, key := range []string{
		"redis.password",
		"s3.region", "s3.profile", "s3.public_base_url",
		"providers.cohere.api_key",
		"providers.chat.api_key", "providers.chat.system_prompt",
		"providers.image.api_key",
		"publisher.base_url", "publisher.username", "publisher.app_password",
		"notifier.telegram_token",
	} {
		v.SetDefault(key, "")
	}
}

func (c *Config) normalize() {
	// A single env var may carry a comma separated broker list
	var brokers []string
	for _, b := range c.Kafka.Brokers {
		for _, part := range strings.Split(b, ",") {
			if part = strings.TrimSpace(part); part != "" {
				brokers = append(brokers, part)
			}
		}
	}
	c.Kafka.Brokers = brokers

	if c.S3.Prefix != "" {
		c.S3.Prefix = strings.Trim(c.S3.Prefix, "/") + "/"
	}
	if c.Pipeline.MaxConcurrentJobs < 1 {
		c.Pipeline.MaxConcurrentJobs = 1
	}
	if c.Pipeline.RetryAttempts < 1 {
		c.Pipeline.RetryAttempts = 1
	}
}
