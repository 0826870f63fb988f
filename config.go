package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AuditEngineURL      string `yaml:"audit_engine_url"`
	AuditTimeoutSeconds int    `yaml:"audit_timeout_seconds"`

	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`

	Categories     []string `yaml:"categories"`
	PromptTemplate string   `yaml:"prompt_template"`

	InputPath         string `yaml:"input_path"`
	IdentifierColumn  string `yaml:"identifier_column"`
	TitleColumn       string `yaml:"title_column"`
	DescriptionColumn string `yaml:"description_column"`
	OutputDir         string `yaml:"output_dir"`

	DBPath      string `yaml:"db_path"`
	Concurrency int    `yaml:"concurrency"`

	AuditSchedule string `yaml:"audit_schedule"`

	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`
}

// defaultCategories is the closed set a classification must land in; anything
// else resolves to Uncategorized. Overridable via config.
var defaultCategories = []string{
	"E-commerce", "Blog", "News", "Corporate", "Government",
	"Health", "Education", "Technology", "Entertainment", "Other",
}

const defaultPromptTemplate = "Classify the following website description into exactly one category.\n" +
	"Categories: %CATEGORIES%\n" +
	"Respond with the category name only, nothing else.\n\n" +
	"Description: %DESCRIPTION%"

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.AuditEngineURL, "AUDIT_ENGINE_URL")
	envOverrideInt(&cfg.AuditTimeoutSeconds, "AUDIT_TIMEOUT_SECONDS")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.PromptTemplate, "PROMPT_TEMPLATE")
	envOverride(&cfg.InputPath, "INPUT_PATH")
	envOverride(&cfg.IdentifierColumn, "IDENTIFIER_COLUMN")
	envOverride(&cfg.TitleColumn, "TITLE_COLUMN")
	envOverride(&cfg.DescriptionColumn, "DESCRIPTION_COLUMN")
	envOverride(&cfg.OutputDir, "OUTPUT_DIR")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverrideInt(&cfg.Concurrency, "CONCURRENCY")
	envOverride(&cfg.AuditSchedule, "AUDIT_SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")

	if names := os.Getenv("CATEGORIES"); names != "" {
		cfg.Categories = nil
		for _, name := range strings.Split(names, ",") {
			name = strings.TrimSpace(name)
			if name != "" {
				cfg.Categories = append(cfg.Categories, name)
			}
		}
	}

	// Defaults
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.AuditTimeoutSeconds == 0 {
		cfg.AuditTimeoutSeconds = 180
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = defaultCategories
	}
	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = defaultPromptTemplate
	}
	if cfg.InputPath == "" {
		cfg.InputPath = "./sites.csv"
	}
	if cfg.IdentifierColumn == "" {
		cfg.IdentifierColumn = "Domain"
	}
	if cfg.TitleColumn == "" {
		cfg.TitleColumn = "Title"
	}
	if cfg.DescriptionColumn == "" {
		cfg.DescriptionColumn = "Description"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./results"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./a11yscan.db"
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 1
	}

	// Validate required fields
	if cfg.AuditEngineURL == "" {
		log.Fatalf("Required config 'audit_engine_url' is not set (via config.yaml or env var)")
	}

	switch cfg.LLMProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Fatalf("anthropic_api_key is required when llm_provider=anthropic")
		}
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Fatalf("openai_api_key is required when llm_provider=openai")
		}
	case "none":
		// Classification disabled; every record resolves to Uncategorized.
	default:
		log.Fatalf("llm_provider must be 'anthropic', 'openai' or 'none', got '%s'", cfg.LLMProvider)
	}

	if cfg.AuditTimeoutSeconds < 1 {
		log.Fatalf("invalid audit_timeout_seconds '%d': must be >= 1", cfg.AuditTimeoutSeconds)
	}
	if cfg.Concurrency < 1 {
		log.Fatalf("invalid concurrency '%d': must be >= 1", cfg.Concurrency)
	}
	if !strings.Contains(cfg.PromptTemplate, "%DESCRIPTION%") {
		log.Fatalf("prompt_template must contain the %%DESCRIPTION%% placeholder")
	}
	if cfg.SlackBotToken != "" && cfg.SlackChannelID == "" {
		log.Fatalf("slack_channel_id is required when slack_bot_token is set")
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

// IsKnownCategory reports whether label matches the configured set, ignoring
// case and surrounding whitespace.
func (c Config) IsKnownCategory(label string) (string, bool) {
	label = strings.ToLower(strings.TrimSpace(label))
	for _, cat := range c.Categories {
		if strings.ToLower(strings.TrimSpace(cat)) == label {
			return cat, true
		}
	}
	return "", false
}
