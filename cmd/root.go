package cmd

import (
	"log"

	"github.com/hireloop/talent-matcher/internal/ranking"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "talent-matcher"
)

type Config struct {
	Store *StoreConfig `mapstructure:"store"`
	Index *IndexConfig `mapstructure:"index"`
	Match *MatchConfig `mapstructure:"match"`
	AI    *AIConfig    `mapstructure:"ai"`
}

type StoreConfig struct {
	// Backend selects the profile source: "file" or "postgres".
	Backend  string          `mapstructure:"backend"`
	File     string          `mapstructure:"file"`
	Postgres *PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	DSN     string `mapstructure:"dsn"`
	DSNFile string `mapstructure:"dsn-file"`
}

type IndexConfig struct {
	// Backend selects the vector index: "memory" or "qdrant".
	Backend string        `mapstructure:"backend"`
	Qdrant  *QdrantConfig `mapstructure:"qdrant"`
}

type QdrantConfig struct {
	URL            string `mapstructure:"url"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	TimeoutSeconds int    `mapstructure:"timeout-seconds"`
}

type MatchConfig struct {
	TopK        int              `mapstructure:"top-k"`
	ResultLimit int              `mapstructure:"result-limit"`
	Concurrency int              `mapstructure:"concurrency"`
	Weights     *ranking.Weights `mapstructure:"weights"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
	// NarrateTop limits how many top-ranked results get an AI narrative.
	NarrateTop int `mapstructure:"narrate-top"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "talent-matcher ranks candidates against jobs using skill overlap and semantic similarity",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("store.postgres.dsn", "DATABASE_URL"); err != nil {
		log.Fatalf("binding DATABASE_URL environment variable: %v", err)
	}
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}
	if err := viper.BindEnv("index.qdrant.api-key-file", "QDRANT_API_KEY_FILE"); err != nil {
		log.Fatalf("binding QDRANT_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is talent-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Secrets and the database DSN may come from a local .env file.
	_ = godotenv.Load()

	// Config is needed only for commands that build the matching stack.
	if matchJobCmd.CalledAs() == "" && matchCandidateCmd.CalledAs() == "" && statsCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
