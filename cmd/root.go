package cmd

import (
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/skillmatch/internal/inbox"
)

const (
	app = "skillmatch"
)

type Config struct {
	Backend   *BackendConfig   `mapstructure:"backend"`
	Session   *SessionConfig   `mapstructure:"session"`
	Recommend *RecommendConfig `mapstructure:"recommend"`
	Storage   *StorageConfig   `mapstructure:"storage"`
	Chat      *ChatConfig      `mapstructure:"chat"`
	AI        *AIConfig        `mapstructure:"ai"`
}

type BackendConfig struct {
	URL        string `mapstructure:"url"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	UserAgent  string `mapstructure:"user-agent"`
}

type SessionConfig struct {
	// File is used when RedisURL is empty.
	File     string `mapstructure:"file"`
	RedisURL string `mapstructure:"redis-url"`
	Prefix   string `mapstructure:"prefix"`
}

type RecommendConfig struct {
	ExcludeCompanies []string `mapstructure:"exclude-companies"`
	Location         string   `mapstructure:"location"`
}

type StorageConfig struct {
	AvatarBucket string `mapstructure:"avatar-bucket"`
	ResumeBucket string `mapstructure:"resume-bucket"`
}

type ChatConfig struct {
	PollInterval time.Duration `mapstructure:"poll-interval"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	MaxNotes int           `mapstructure:"max-notes"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skillmatch is a cli for a skills-based job marketplace: find jobs, apply and talk to employers",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"backend.url":            "SKILLMATCH_URL",
		"backend.api-key-file":   "SKILLMATCH_API_KEY_FILE",
		"session.file":           "SKILLMATCH_SESSION_FILE",
		"session.redis-url":      "SKILLMATCH_REDIS_URL",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("session.prefix", app)
	viper.SetDefault("storage.avatar-bucket", "avatars")
	viper.SetDefault("storage.resume-bucket", "resumes")
	viper.SetDefault("chat.poll-interval", inbox.DefaultInterval)
	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.max-notes", 5)
	viper.SetDefault("ai.gemini.max-retries", 3)

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skillmatch.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	err := viper.ReadInConfig()
	if err == nil {
		return
	}

	// Without an explicit --config the file is optional: env and defaults may be enough.
	var notFound viper.ConfigFileNotFoundError
	if cfgFile == "" && errors.As(err, &notFound) {
		return
	}

	// We can't proceed if the config file parsed with error.
	log.Fatal(err)
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config == nil {
		config = &Config{}
	}
	config.setDefaults()

	return config, nil
}

func (c *Config) setDefaults() {
	if c.Backend == nil {
		c.Backend = &BackendConfig{}
	}
	if c.Session == nil {
		c.Session = &SessionConfig{}
	}
	if c.Recommend == nil {
		c.Recommend = &RecommendConfig{}
	}
	if c.Storage == nil {
		c.Storage = &StorageConfig{}
	}
	if c.Chat == nil {
		c.Chat = &ChatConfig{}
	}
	if c.Chat.PollInterval <= 0 {
		c.Chat.PollInterval = inbox.DefaultInterval
	}
	if c.AI == nil {
		c.AI = &AIConfig{}
	}
	if c.AI.Gemini == nil {
		c.AI.Gemini = &GeminiConfig{}
	}
}
