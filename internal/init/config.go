package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	// App mode & dev server
	Mode       string
	ServerAddr string
	JWTSecret  string
	LogLevel   string

	// Remote API
	APIURL      string
	EmbedURL    string
	HTTPTimeout time.Duration

	// Client state
	StoreDriver string
	StorePath   string
	RedisURL    string

	// Activity events (empty broker disables publishing)
	KafkaBroker    string
	KafkaTopic     string
	KafkaGroupID   string
	KafkaPartition int
	KafkaReadTO    time.Duration
	KafkaWriteTO   time.Duration

	// UI behaviour
	SearchDebounce    time.Duration
	RedirectDelay     time.Duration
	UploadConcurrency int
	Captcha           bool
}

var cfg *Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("MODE", "")
	v.SetDefault("SERVER_ADDR", ":5000")
	v.SetDefault("JWT_SECRET", "dev-secret")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("API_URL", "http://localhost:5000")
	v.SetDefault("EMBED_URL", "https://noembed.com/embed")
	// no client timeout unless asked for
	v.SetDefault("HTTP_TIMEOUT", "0s")

	v.SetDefault("STORE_DRIVER", "file")
	v.SetDefault("STORE_PATH", ".chyrp.yaml")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")

	v.SetDefault("KAFKA_BROKER", "")
	v.SetDefault("KAFKA_TOPIC", "chyrp-activity")
	v.SetDefault("KAFKA_GROUP_ID", "chyrp-tail")
	v.SetDefault("KAFKA_PARTITION", 0)
	v.SetDefault("KAFKA_READ_TIMEOUT", "10s")
	v.SetDefault("KAFKA_WRITE_TIMEOUT", "10s")

	v.SetDefault("SEARCH_DEBOUNCE", "300ms")
	v.SetDefault("REDIRECT_DELAY", "1500ms")
	v.SetDefault("UPLOAD_CONCURRENCY", 4)
	v.SetDefault("CAPTCHA", true)
}

// Init loads the config using Viper and returns it. Flags already parsed
// into fs override env and file values for the keys they bind.
func Init(fs *pflag.FlagSet) *Config {
	v := viper.New()
	setDefaults(v)

	// Load env variables
	v.AutomaticEnv()

	// Optional config file support
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // ignore error if no file

	if fs != nil {
		bindFlags(v, fs)
	}

	cfg = load(v)
	return cfg
}

// Flags returns the flag set shared by all commands. Flag names are the
// lower-case, dash separated form of the config keys.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("api-url", "", "base URL of the blog API")
	fs.String("store-driver", "", "client state backend: file, sqlite, redis or memory")
	fs.String("store-path", "", "path of the file or sqlite state store")
	fs.String("kafka-broker", "", "broker for activity events, empty disables them")
	fs.String("server-addr", "", "listen address of the dev API server")
	fs.String("log-level", "", "debug, info or error")
	return fs
}

var flagKeys = map[string]string{
	"api-url":      "API_URL",
	"store-driver": "STORE_DRIVER",
	"store-path":   "STORE_PATH",
	"kafka-broker": "KAFKA_BROKER",
	"server-addr":  "SERVER_ADDR",
	"log-level":    "LOG_LEVEL",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		_ = v.BindPFlag(key, f)
	}
}

func load(v *viper.Viper) *Config {
	return &Config{
		Mode:              v.GetString("MODE"),
		ServerAddr:        v.GetString("SERVER_ADDR"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		APIURL:            v.GetString("API_URL"),
		EmbedURL:          v.GetString("EMBED_URL"),
		HTTPTimeout:       parseDuration(v.GetString("HTTP_TIMEOUT"), 0),
		StoreDriver:       v.GetString("STORE_DRIVER"),
		StorePath:         v.GetString("STORE_PATH"),
		RedisURL:          v.GetString("REDIS_URL"),
		KafkaBroker:       v.GetString("KAFKA_BROKER"),
		KafkaTopic:        v.GetString("KAFKA_TOPIC"),
		KafkaGroupID:      v.GetString("KAFKA_GROUP_ID"),
		KafkaPartition:    v.GetInt("KAFKA_PARTITION"),
		KafkaReadTO:       parseDuration(v.GetString("KAFKA_READ_TIMEOUT"), 10*time.Second),
		KafkaWriteTO:      parseDuration(v.GetString("KAFKA_WRITE_TIMEOUT"), 10*time.Second),
		SearchDebounce:    parseDuration(v.GetString("SEARCH_DEBOUNCE"), 300*time.Millisecond),
		RedirectDelay:     parseDuration(v.GetString("REDIRECT_DELAY"), 1500*time.Millisecond),
		UploadConcurrency: v.GetInt("UPLOAD_CONCURRENCY"),
		Captcha:           v.GetBool("CAPTCHA"),
	}
}

func parseDuration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

// Get returns the loaded config instance
func Get() *Config {
	return cfg
}
