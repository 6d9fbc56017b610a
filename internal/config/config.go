package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	TransportMultipart = "multipart"
	TransportJSON      = "json"

	ProviderOpenAI           = "openai"
	ProviderOpenAICompatible = "openai-compatible"
)

// Config captures the runtime configuration for the proxy service.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Upstream      UpstreamConfig      `mapstructure:"upstream"`
	Images        ImagesConfig        `mapstructure:"images"`
	Prompts       PromptsConfig       `mapstructure:"prompts"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Redis         RedisConfig         `mapstructure:"redis"`
	RateLimits    RateLimitConfig     `mapstructure:"rate_limits"`
	Idempotency   IdempotencyConfig   `mapstructure:"idempotency"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr"`
	BodyOverheadKB        int           `mapstructure:"body_overhead_kb"`
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	WriteTimeout          time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay"`
	LogLevel              string        `mapstructure:"log_level"`
}

type UpstreamConfig struct {
	Provider     string        `mapstructure:"provider"`
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	Organization string        `mapstructure:"organization"`
	MaxRetries   int           `mapstructure:"max_retries"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ChatModel    string        `mapstructure:"chat_model"`
	ImageModel   string        `mapstructure:"image_model"`
	EditModel    string        `mapstructure:"edit_model"`
	EditSize     string        `mapstructure:"edit_size"`
}

type ImagesConfig struct {
	MaxSizeMB       int    `mapstructure:"max_size_mb"`
	CanonicalFormat string `mapstructure:"canonical_format"`
	EditTransport   string `mapstructure:"edit_transport"`
}

// MaxBytes returns the per-image size cap.
func (i ImagesConfig) MaxBytes() int64 {
	return int64(i.MaxSizeMB) << 20
}

type PromptsConfig struct {
	EditMinLength     int `mapstructure:"edit_min_length"`
	GenerateMinLength int `mapstructure:"generate_min_length"`
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
	AllowHeaders []string `mapstructure:"allow_headers"`
	MaxAge       int      `mapstructure:"max_age"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Enabled reports whether a redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	TokensPerMinute   int `mapstructure:"tokens_per_minute"`
	ParallelRequests  int `mapstructure:"parallel_requests"`
}

type IdempotencyConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type ObservabilityConfig struct {
	ServiceName   string `mapstructure:"service_name"`
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"`
	EnableOTLP    bool   `mapstructure:"enable_otlp"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else if cfg := os.Getenv("PROXY_CONFIG_FILE"); cfg != "" {
		v.SetConfigFile(cfg)
		explicitFile = true
	}

	if !explicitFile {
		v.SetConfigName("proxy")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("PROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		timeStringToDurationHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Upstream.APIKey) == "" {
		cfg.Upstream.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures required values are set and normalizes the rest.
func (c *Config) Validate() error {
	if err := c.Server.validate(); err != nil {
		return err
	}
	if err := c.Upstream.validate(); err != nil {
		return err
	}
	if err := c.Images.validate(); err != nil {
		return err
	}
	if c.Prompts.EditMinLength <= 0 {
		c.Prompts.EditMinLength = 3
	}
	if c.Prompts.GenerateMinLength <= 0 {
		c.Prompts.GenerateMinLength = 10
	}
	c.CORS.AllowOrigins = normalizeStringSlice(c.CORS.AllowOrigins)
	if len(c.CORS.AllowOrigins) == 0 {
		c.CORS.AllowOrigins = []string{"*"}
	}
	c.CORS.AllowHeaders = normalizeStringSlice(c.CORS.AllowHeaders)

	if c.Redis.PoolSize < 0 {
		return fmt.Errorf("redis.pool_size must be >= 0")
	}
	if c.RateLimits.RequestsPerMinute < 0 || c.RateLimits.TokensPerMinute < 0 || c.RateLimits.ParallelRequests < 0 {
		return fmt.Errorf("rate_limits values must be >= 0")
	}
	if c.Idempotency.TTL <= 0 {
		c.Idempotency.TTL = 30 * time.Minute
	}
	if strings.TrimSpace(c.Observability.ServiceName) == "" {
		c.Observability.ServiceName = "image-studio-proxy"
	}
	return nil
}

// BodyLimitBytes is the largest request body the server accepts: the image
// cap in its wire encoding plus the configured overhead. On the json edit
// transport the image arrives base64 encoded inside a data URL.
func (c *Config) BodyLimitBytes() int {
	image := c.Images.MaxBytes()
	if c.Images.EditTransport == TransportJSON {
		image = base64Len(image)
	}
	return int(image) + c.Server.BodyOverheadKB<<10
}

// base64Len is the padded standard base64 length of n bytes.
func base64Len(n int64) int64 {
	return 4 * ((n + 2) / 3)
}

func (s *ServerConfig) validate() error {
	if strings.TrimSpace(s.ListenAddr) == "" {
		return fmt.Errorf("server.listen_addr must be provided")
	}
	if s.BodyOverheadKB < 0 {
		return fmt.Errorf("server.body_overhead_kb must be >= 0")
	}
	switch strings.ToLower(strings.TrimSpace(s.LogLevel)) {
	case "", "info":
		s.LogLevel = "info"
	case "debug", "warn", "error":
		s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	default:
		return fmt.Errorf("server.log_level must be debug, info, warn or error")
	}
	return nil
}

func (u *UpstreamConfig) validate() error {
	u.Provider = strings.ToLower(strings.TrimSpace(u.Provider))
	switch u.Provider {
	case "":
		u.Provider = ProviderOpenAI
	case ProviderOpenAI, ProviderOpenAICompatible:
	default:
		return fmt.Errorf("upstream.provider must be %s or %s", ProviderOpenAI, ProviderOpenAICompatible)
	}
	if strings.TrimSpace(u.APIKey) == "" {
		return fmt.Errorf("missing required configuration: PROXY_UPSTREAM_API_KEY or OPENAI_API_KEY")
	}
	if u.Provider == ProviderOpenAICompatible && strings.TrimSpace(u.BaseURL) == "" {
		return fmt.Errorf("upstream.base_url must be provided for %s", ProviderOpenAICompatible)
	}
	if u.BaseURL != "" {
		if parsed, err := url.Parse(u.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("upstream.base_url must be an absolute URL")
		}
	}
	if u.Timeout <= 0 {
		return fmt.Errorf("upstream.timeout must be > 0")
	}
	if u.ChatModel == "" || u.ImageModel == "" {
		return fmt.Errorf("upstream.chat_model and upstream.image_model must be provided")
	}
	if u.EditModel == "" {
		u.EditModel = u.ImageModel
	}
	return nil
}

func (i *ImagesConfig) validate() error {
	if i.MaxSizeMB <= 0 {
		return fmt.Errorf("images.max_size_mb must be > 0")
	}
	switch strings.ToLower(strings.TrimSpace(i.CanonicalFormat)) {
	case "", "none":
		i.CanonicalFormat = ""
	case "png":
		i.CanonicalFormat = "png"
	case "jpg", "jpeg":
		i.CanonicalFormat = "jpeg"
	default:
		return fmt.Errorf("images.canonical_format must be empty, png or jpeg")
	}
	switch strings.ToLower(strings.TrimSpace(i.EditTransport)) {
	case "", TransportMultipart:
		i.EditTransport = TransportMultipart
	case TransportJSON:
		i.EditTransport = TransportJSON
	default:
		return fmt.Errorf("images.edit_transport must be %s or %s", TransportMultipart, TransportJSON)
	}
	return nil
}

// Redacted returns a copy safe to print: credentials are masked.
func (c Config) Redacted() Config {
	out := c
	out.Upstream.APIKey = mask(c.Upstream.APIKey)
	if c.Redis.URL != "" {
		if parsed, err := url.Parse(c.Redis.URL); err == nil && parsed.User != nil {
			if _, ok := parsed.User.Password(); ok {
				parsed.User = url.UserPassword(parsed.User.Username(), "xxxxx")
			}
			out.Redis.URL = parsed.String()
		}
	}
	out.CORS.AllowOrigins = append([]string(nil), c.CORS.AllowOrigins...)
	out.CORS.AllowHeaders = append([]string(nil), c.CORS.AllowHeaders...)
	return out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:3] + "****" + secret[len(secret)-4:]
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.body_overhead_kb", 256)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")
	v.SetDefault("server.log_level", "info")

	v.SetDefault("upstream.provider", ProviderOpenAI)
	v.SetDefault("upstream.api_key", "")
	v.SetDefault("upstream.base_url", "")
	v.SetDefault("upstream.organization", "")
	v.SetDefault("upstream.max_retries", 2)
	v.SetDefault("upstream.timeout", "120s")
	v.SetDefault("upstream.chat_model", "gpt-4o-mini")
	v.SetDefault("upstream.image_model", "gpt-image-1")
	v.SetDefault("upstream.edit_model", "")
	v.SetDefault("upstream.edit_size", "1024x1024")

	v.SetDefault("images.max_size_mb", 4)
	v.SetDefault("images.canonical_format", "")
	v.SetDefault("images.edit_transport", TransportMultipart)

	v.SetDefault("prompts.edit_min_length", 3)
	v.SetDefault("prompts.generate_min_length", 10)

	v.SetDefault("cors.allow_origins", []string{"*"})
	v.SetDefault("cors.allow_headers", []string{"Content-Type", "Authorization", "Idempotency-Key"})
	v.SetDefault("cors.max_age", 0)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("rate_limits.requests_per_minute", 0)
	v.SetDefault("rate_limits.tokens_per_minute", 0)
	v.SetDefault("rate_limits.parallel_requests", 0)

	v.SetDefault("idempotency.enabled", true)
	v.SetDefault("idempotency.ttl", "30m")

	v.SetDefault("observability.service_name", "image-studio-proxy")
	v.SetDefault("observability.enable_otlp", false)
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.otlp_endpoint", "http://localhost:4317")
}

func normalizeStringSlice(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	clean := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	if len(clean) == 0 {
		return nil
	}
	return clean
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
