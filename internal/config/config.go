package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StoreMongo    = "mongo"
	StoreSQLite   = "sqlite"
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Port      string `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	APIKey    string `yaml:"api_key"`

	Store  StoreConfig  `yaml:"store"`
	LLM    LLMConfig    `yaml:"llm"`
	Engine EngineConfig `yaml:"engine"`
}

type StoreConfig struct {
	Driver         string `yaml:"driver"`
	MongoURI       string `yaml:"mongodb_uri"`
	MongoDatabase  string `yaml:"mongodb_database"`
	SQLitePath     string `yaml:"sqlite_path"`
	DynamoTable    string `yaml:"dynamodb_table"`
	DynamoEndpoint string `yaml:"dynamodb_endpoint"`
}

type LLMConfig struct {
	Provider       string `yaml:"provider"`
	OpenAIAPIKey   string `yaml:"openai_api_key"`
	OpenAIURL      string `yaml:"openai_chat_completions_url"`
	OpenAIModel    string `yaml:"openai_model"`
	GeminiAPIKey   string `yaml:"gemini_api_key"`
	GeminiModel    string `yaml:"gemini_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type EngineConfig struct {
	MaxTopics            int    `yaml:"max_topics"`
	MaxEntities          int    `yaml:"max_entities"`
	Persona              string `yaml:"persona"`
	ReanalyzeConcurrency int    `yaml:"reanalyze_concurrency"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Port:      "8080",
		LogLevel:  "info",
		LogFormat: "json",
		Store: StoreConfig{
			Driver:        StoreMongo,
			MongoDatabase: "ShopAssistant",
			SQLitePath:    "shop-assistant.db",
			DynamoTable:   "conversations",
		},
		LLM: LLMConfig{
			Provider:       ProviderOpenAI,
			OpenAIURL:      "https://api.openai.com/v1/chat/completions",
			OpenAIModel:    "gpt-4o-mini",
			GeminiModel:    "gemini-2.0-flash",
			TimeoutSeconds: 30,
		},
		Engine: EngineConfig{
			MaxTopics:            100,
			MaxEntities:          100,
			ReanalyzeConcurrency: 4,
		},
	}
}

// LoadEnv loads a .env file from the working directory. A missing file is not an error.
func LoadEnv() error {
	err := godotenv.Load(".env")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	return nil
}

// Load builds the configuration from defaults, the optional YAML file named by
// CONFIG_FILE and finally the environment, in that order of precedence.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setString(&cfg.APIKey, "API_KEY")

	setString(&cfg.Store.Driver, "STORE_DRIVER")
	setString(&cfg.Store.MongoURI, "MONGODB_URI")
	setString(&cfg.Store.MongoDatabase, "MONGODB_DATABASE")
	setString(&cfg.Store.SQLitePath, "SQLITE_PATH")
	setString(&cfg.Store.DynamoTable, "DYNAMODB_TABLE")
	setString(&cfg.Store.DynamoEndpoint, "DYNAMODB_ENDPOINT")

	setString(&cfg.LLM.Provider, "LLM_PROVIDER")
	setString(&cfg.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&cfg.LLM.OpenAIURL, "OPENAI_CHAT_COMPLETIONS_URL")
	setString(&cfg.LLM.OpenAIModel, "OPENAI_MODEL")
	setString(&cfg.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	setString(&cfg.LLM.GeminiModel, "GEMINI_MODEL")

	setString(&cfg.Engine.Persona, "ASSISTANT_PERSONA")

	ints := []struct {
		dst *int
		key string
	}{
		{&cfg.LLM.TimeoutSeconds, "LLM_TIMEOUT_SECONDS"},
		{&cfg.Engine.MaxTopics, "CONTEXT_MAX_TOPICS"},
		{&cfg.Engine.MaxEntities, "CONTEXT_MAX_ENTITIES"},
		{&cfg.Engine.ReanalyzeConcurrency, "REANALYZE_CONCURRENCY"},
	}
	for _, i := range ints {
		if err := setInt(i.dst, i.key); err != nil {
			return err
		}
	}
	return nil
}

// Validate reports the first setting that cannot work with the selected drivers.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Port) == "" {
		return errors.New("PORT is required")
	}

	switch c.Store.Driver {
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New("MONGODB_URI is required when STORE_DRIVER is mongo")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required when STORE_DRIVER is sqlite")
		}
	case StoreDynamoDB:
		if c.Store.DynamoTable == "" {
			return errors.New("DYNAMODB_TABLE is required when STORE_DRIVER is dynamodb")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required when LLM_PROVIDER is openai")
		}
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return errors.New("GEMINI_API_KEY is required when LLM_PROVIDER is gemini")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLM.Provider)
	}

	if c.LLM.TimeoutSeconds <= 0 {
		return errors.New("LLM_TIMEOUT_SECONDS must be positive")
	}
	if c.Engine.MaxTopics < 0 || c.Engine.MaxEntities < 0 {
		return errors.New("CONTEXT_MAX_TOPICS and CONTEXT_MAX_ENTITIES must not be negative")
	}
	if c.Engine.ReanalyzeConcurrency <= 0 {
		return errors.New("REANALYZE_CONCURRENCY must be positive")
	}
	return nil
}

// JSONLogs reports whether the logger should emit JSON.
func (c Config) JSONLogs() bool {
	return !strings.EqualFold(c.LogFormat, "text")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}
