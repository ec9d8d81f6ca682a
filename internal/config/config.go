// Package config loads harvester settings from file, environment and .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "NEWSCLIP"

	StoreDriverBolt   = "bolt"
	StoreDriverSQLite = "sqlite"

	CredentialNewsAPI  = "newsapi"
	CredentialNewsData = "newsdata"
)

// Config is the root configuration object, built once and passed down explicitly.
type Config struct {
	Store      StoreConfig      `mapstructure:"store"`
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	NewsAPI    NewsAPIConfig    `mapstructure:"newsapi"`
	NewsData   NewsDataConfig   `mapstructure:"newsdata"`
	GoogleNews GoogleNewsConfig `mapstructure:"googlenews"`
	Publishers PublishersConfig `mapstructure:"publishers"`
	Schedule   ScheduleConfig   `mapstructure:"schedule"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	ScrapeAgent   string        `mapstructure:"scrape_user_agent"`
	RetryCount    int           `mapstructure:"retry_count"`
	APITimeout    time.Duration `mapstructure:"api_timeout"`
	ScrapeTimeout time.Duration `mapstructure:"scrape_timeout"`
}

type FetchConfig struct {
	LookbackDays      int           `mapstructure:"lookback_days"`
	Workers           int           `mapstructure:"workers"`
	ClientParallelism int           `mapstructure:"client_parallelism"`
	ClientTimeout     time.Duration `mapstructure:"client_timeout"`
	ScrapeEnrich      bool          `mapstructure:"scrape_enrich"`
}

type NewsAPIConfig struct {
	URL      string `mapstructure:"url"`
	Key      string `mapstructure:"key"`
	MaxDays  int    `mapstructure:"max_days"`
	Language string `mapstructure:"language"`
	PageSize int    `mapstructure:"page_size"`
}

type NewsDataConfig struct {
	URL      string `mapstructure:"url"`
	Key      string `mapstructure:"key"`
	Language string `mapstructure:"language"`
}

type GoogleNewsConfig struct {
	URL  string `mapstructure:"url"`
	HL   string `mapstructure:"hl"`
	GL   string `mapstructure:"gl"`
	CEID string `mapstructure:"ceid"`
}

type PublishersConfig struct {
	File string `mapstructure:"file"`
}

type ScheduleConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// SetDefaults registers every key so AutomaticEnv can override it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", StoreDriverBolt)
	v.SetDefault("store.path", "newsclip.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("http.timeout", 20*time.Second)
	v.SetDefault("http.user_agent", "newsclip/1.0 (+https://github.com/Adda-Baaj/newsclip)")
	v.SetDefault("http.scrape_user_agent", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)")
	v.SetDefault("http.retry_count", 2)
	v.SetDefault("http.api_timeout", 30*time.Second)
	v.SetDefault("http.scrape_timeout", 20*time.Second)
	v.SetDefault("fetch.lookback_days", 90)
	v.SetDefault("fetch.workers", 5)
	v.SetDefault("fetch.client_parallelism", 1)
	v.SetDefault("fetch.client_timeout", time.Duration(0))
	v.SetDefault("fetch.scrape_enrich", false)
	v.SetDefault("newsapi.url", "https://newsapi.org/v2/everything")
	v.SetDefault("newsapi.key", "")
	v.SetDefault("newsapi.max_days", 30)
	v.SetDefault("newsapi.language", "pt")
	v.SetDefault("newsapi.page_size", 100)
	v.SetDefault("newsdata.url", "https://newsdata.io/api/1/latest")
	v.SetDefault("newsdata.key", "")
	v.SetDefault("newsdata.language", "pt")
	v.SetDefault("googlenews.url", "https://news.google.com/rss/search")
	v.SetDefault("googlenews.hl", "pt-BR")
	v.SetDefault("googlenews.gl", "BR")
	v.SetDefault("googlenews.ceid", "BR:pt-BR")
	v.SetDefault("publishers.file", "")
	v.SetDefault("schedule.interval", time.Hour)
}

// Load reads .env (if present), the optional config file and NEWSCLIP_* environment overrides.
// An empty path searches for newsclip.yaml in the working directory; a missing file is not an error then.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("newsclip")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates a populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Keys historically live under un-prefixed names.
	if cfg.NewsAPI.Key == "" {
		cfg.NewsAPI.Key = strings.TrimSpace(os.Getenv("NEWSAPI_API_KEY"))
	}
	if cfg.NewsData.Key == "" {
		cfg.NewsData.Key = strings.TrimSpace(os.Getenv("NEWSDATA_API_KEY"))
	}
	if u := strings.TrimSpace(os.Getenv("NEWSDATA_URL")); u != "" && !v.IsSet("newsdata.url") {
		cfg.NewsData.URL = u
	}

	sanitize(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func sanitize(cfg *Config) {
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Store.Path = strings.TrimSpace(cfg.Store.Path)
	cfg.NewsAPI.Key = strings.TrimSpace(cfg.NewsAPI.Key)
	cfg.NewsData.Key = strings.TrimSpace(cfg.NewsData.Key)
	cfg.Publishers.File = strings.TrimSpace(cfg.Publishers.File)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverBolt, StoreDriverSQLite:
	default:
		return fmt.Errorf("store.driver %q not supported (bolt or sqlite)", c.Store.Driver)
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if c.Fetch.Workers <= 0 {
		return fmt.Errorf("fetch.workers must be positive, got %d", c.Fetch.Workers)
	}
	if c.Fetch.LookbackDays <= 0 {
		return fmt.Errorf("fetch.lookback_days must be positive, got %d", c.Fetch.LookbackDays)
	}
	if c.Fetch.ClientParallelism <= 0 {
		c.Fetch.ClientParallelism = 1
	}
	if c.NewsAPI.MaxDays <= 0 {
		return fmt.Errorf("newsapi.max_days must be positive, got %d", c.NewsAPI.MaxDays)
	}
	if c.HTTP.Timeout <= 0 {
		return errors.New("http.timeout must be positive")
	}
	return nil
}

// Credentials exposes the API keys. An unset key is reported as absent, not as an error.
func (c *Config) Credentials() Credentials {
	return MapCredentials{
		CredentialNewsAPI:  c.NewsAPI.Key,
		CredentialNewsData: c.NewsData.Key,
	}
}

// Credentials looks up API keys by name.
type Credentials interface {
	Lookup(name string) (string, bool)
}

// MapCredentials is a Credentials backed by a map; blank values count as unset.
type MapCredentials map[string]string

func (m MapCredentials) Lookup(name string) (string, bool) {
	v := strings.TrimSpace(m[name])
	return v, v != ""
}
