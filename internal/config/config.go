// Package config loads bot configuration from file, environment and .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/facturaIA/amount-extractor-bot/internal/preprocess"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// TokenEnv is the environment variable holding the Discord bot token
const TokenEnv = "DISCORD_AMOUNT_EXTRACTOR_TOKEN"

// Config represents the service configuration
type Config struct {
	Discord     DiscordConfig     `mapstructure:"discord"`
	Bot         BotConfig         `mapstructure:"bot"`
	Server      ServerConfig      `mapstructure:"server"`
	Preprocess  PreprocessConfig  `mapstructure:"preprocess"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	AI          AIConfig          `mapstructure:"ai"`
	Log         LogConfig         `mapstructure:"log"`
}

// DiscordConfig holds chat platform settings
type DiscordConfig struct {
	Token        string   `mapstructure:"token"`
	HelpCommands []string `mapstructure:"help_commands"`
}

// BotConfig holds per-request limits
type BotConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxDownloadSize int64         `mapstructure:"max_download_size"`
}

// ServerConfig holds the HTTP API settings
type ServerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// PreprocessConfig configures the image preprocessor
type PreprocessConfig struct {
	Backend      string          `mapstructure:"backend"` // "imagick" or "imaging"
	Crop         preprocess.Rect `mapstructure:"crop"`
	SharpenSigma float64         `mapstructure:"sharpen_sigma"`
	DebugOutput  string          `mapstructure:"debug_output"` // Path of the last processed image, empty to disable
}

// RecognitionConfig configures OCR
type RecognitionConfig struct {
	ProfilesFile   string        `mapstructure:"profiles_file"` // YAML profile list, empty for built-in profiles
	TessdataPrefix string        `mapstructure:"tessdata_prefix"`
	VisionTimeout  time.Duration `mapstructure:"vision_timeout"`
}

// AIConfig represents AI provider configuration for vision profiles
type AIConfig struct {
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Gemini GeminiConfig `mapstructure:"gemini"`
	Ollama OllamaConfig `mapstructure:"ollama"`
}

// OpenAIConfig for OpenAI/Azure OpenAI
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"` // For custom endpoints
	Model   string `mapstructure:"model"`
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OllamaConfig for local Ollama
type OllamaConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// LogConfig controls zerolog output
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "console" or "json"
}

// Load loads configuration from file and environment variables.
// An empty path searches the default locations.
func Load(path string) (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("amount-bot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/amount-bot")
	}

	setDefaults(v)

	v.SetEnvPrefix("AMOUNTBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("discord.token", TokenEnv, "AMOUNTBOT_DISCORD_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind token env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads environment variables from the first .env file found
func loadEnvFile() error {
	for _, location := range []string{".env", ".env.local"} {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Info().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}

	return fmt.Errorf("no .env file found")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.token", "")
	v.SetDefault("discord.help_commands", []string{"!help", "!ヘルプ"})

	v.SetDefault("bot.request_timeout", "90s")
	v.SetDefault("bot.max_download_size", 10*1024*1024) // 10MB

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")

	v.SetDefault("preprocess.backend", preprocess.BackendImagick)
	v.SetDefault("preprocess.crop.left", preprocess.DefaultCrop.Left)
	v.SetDefault("preprocess.crop.top", preprocess.DefaultCrop.Top)
	v.SetDefault("preprocess.crop.width", preprocess.DefaultCrop.Width)
	v.SetDefault("preprocess.crop.height", preprocess.DefaultCrop.Height)
	v.SetDefault("preprocess.sharpen_sigma", 1.0)
	v.SetDefault("preprocess.debug_output", "")

	v.SetDefault("recognition.profiles_file", "")
	v.SetDefault("recognition.tessdata_prefix", "")
	v.SetDefault("recognition.vision_timeout", "60s")

	v.SetDefault("ai.openai.api_key", "")
	v.SetDefault("ai.openai.base_url", "")
	v.SetDefault("ai.openai.model", "gpt-4o")
	v.SetDefault("ai.gemini.api_key", "")
	v.SetDefault("ai.gemini.model", "gemini-1.5-flash")
	v.SetDefault("ai.ollama.base_url", "http://localhost:11434")
	v.SetDefault("ai.ollama.model", "llava")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks values that would otherwise fail late
func (c *Config) Validate() error {
	if c.Bot.RequestTimeout <= 0 {
		return errors.New("bot.request_timeout must be positive")
	}
	if c.Bot.MaxDownloadSize <= 0 {
		return errors.New("bot.max_download_size must be positive")
	}

	if c.Server.Enabled {
		if c.Server.Address == "" {
			return errors.New("server.address cannot be empty")
		}
		if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
			return errors.New("server timeouts must be positive")
		}
	}

	switch c.Preprocess.Backend {
	case preprocess.BackendImagick, preprocess.BackendImaging:
	default:
		return fmt.Errorf("unknown preprocess.backend %q", c.Preprocess.Backend)
	}
	if err := c.Preprocess.Crop.Validate(); err != nil {
		return fmt.Errorf("preprocess.crop: %w", err)
	}

	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}

	return nil
}

// ValidateForBot additionally requires the Discord token
func (c *Config) ValidateForBot() error {
	if c.Discord.Token == "" {
		return fmt.Errorf("discord token is required (set %s)", TokenEnv)
	}
	return nil
}
