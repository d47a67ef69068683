package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Dataset names used as keys throughout acquisition and cleaning.
const (
	DatasetCharacteristics = "characteristics"
	DatasetLocations       = "locations"
	DatasetUsers           = "users"
)

// DatasetNames lists the three raw datasets in load order.
var DatasetNames = []string{DatasetCharacteristics, DatasetLocations, DatasetUsers}

// Config holds all settings, populated from an optional YAML file and
// ACCIDASH_* environment variables.
type Config struct {
	// DatasetURLs maps each raw dataset name to its source URL. Changing a
	// URL never changes the schema the cleaning step expects.
	DatasetURLs map[string]string `mapstructure:"dataset_urls"`

	RawDir       string        `mapstructure:"raw_dir"`
	CleanedFile  string        `mapstructure:"cleaned_file"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	HTTPAddr        string        `mapstructure:"http_addr"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// Optional sinks for the cleaned table, beyond the CSV file.
	KafkaEnabled bool     `mapstructure:"kafka_enabled"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
	ParquetFile  string   `mapstructure:"parquet_file"`
}

// Load reads configuration from an optional config file plus environment
// variables, applying defaults where unset.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("dataset_urls", map[string]string{
		// The upstream characteristics filename really is misspelled.
		DatasetCharacteristics: "https://static.data.gouv.fr/resources/accidents-corporels-2022/carcteristiques-2022.csv",
		DatasetLocations:       "https://static.data.gouv.fr/resources/accidents-corporels-2022/lieux-2022.csv",
		DatasetUsers:           "https://static.data.gouv.fr/resources/accidents-corporels-2022/usagers-2022.csv",
	})
	v.SetDefault("raw_dir", "data/raw")
	v.SetDefault("cleaned_file", "data/cleaned/accidents-2022.csv")
	v.SetDefault("fetch_timeout", "120s")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("shutdown_timeout", "10s")
	v.SetDefault("kafka_enabled", false)
	v.SetDefault("kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("kafka_topic", "cleaned-accidents")
	v.SetDefault("parquet_file", "")

	v.SetEnvPrefix("ACCIDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	// A set-but-empty env var counts as an override, so values like
	// kafka_topic can be explicitly cleared from the environment.
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	decodeHook := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			dc.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Per-dataset URL overrides (ACCIDASH_DATASET_URLS_USERS etc.) do not
	// reach the map through AutomaticEnv, so fold them in explicitly.
	for _, name := range DatasetNames {
		if u := v.GetString("dataset_urls_" + name); u != "" {
			cfg.DatasetURLs[name] = u
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	for _, name := range DatasetNames {
		if cfg.DatasetURLs[name] == "" {
			return fmt.Errorf("dataset_urls.%s is required", name)
		}
	}
	if cfg.RawDir == "" {
		return errors.New("raw_dir is required")
	}
	if cfg.CleanedFile == "" {
		return errors.New("cleaned_file is required")
	}
	if cfg.FetchTimeout <= 0 {
		return errors.New("fetch_timeout must be positive")
	}
	if cfg.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be positive")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("log_format must be json or text, got %q", cfg.LogFormat)
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return errors.New("kafka_enabled is true but kafka_brokers is empty")
		}
		if cfg.KafkaTopic == "" {
			return errors.New("kafka_enabled is true but kafka_topic is empty")
		}
	}
	return nil
}

// RawPath returns the local path a raw dataset is downloaded to.
func (cfg *Config) RawPath(dataset string) string {
	return filepath.Join(cfg.RawDir, dataset+".csv")
}
