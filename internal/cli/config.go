package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Claimforge configuration",
	Long: `Manage Claimforge configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CLAIMFORGE_*)
3. Config file (~/.claimforge/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current configuration including all sources (defaults, config file, env vars, flags).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		configFile := viper.ConfigFileUsed()
		if configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Println(string(yamlData))

		fmt.Println("Configuration hierarchy (highest to lowest priority):")
		fmt.Println("  1. CLI flags")
		fmt.Println("  2. Environment variables (CLAIMFORGE_*)")
		fmt.Println("  3. Config file (~/.claimforge/config.yaml)")
		fmt.Println("  4. Defaults")
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.claimforge/config.yaml with all available options documented.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := home + "/.claimforge"
		configPath := configDir + "/config.yaml"

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s\nUse 'claimforge config show' to view it, or delete it first to recreate", configPath)
		}

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return fmt.Errorf("error creating config directory: %w", err)
		}

		if err := os.WriteFile(configPath, []byte(defaultConfigTemplate), 0644); err != nil {
			return fmt.Errorf("error writing config file: %w", err)
		}

		fmt.Printf("✓ Created config file: %s\n", configPath)
		return nil
	},
}

const defaultConfigTemplate = `# Claimforge configuration
# Environment variables (CLAIMFORGE_*) and CLI flags override these values.

resolution:
  max_sources: 120          # maximum linked refs to resolve per run
  concurrency: 6            # concurrent resolution calls
  requests_per_second: 3    # per-host rate limit for provider APIs
  cache_ttl: 15m            # resolved source cache TTL
  timeout: 20s              # per-request HTTP timeout

synthesis:
  max_claims: 12            # maximum claims to extract
  max_sources: 60           # maximum sources fed to the extractor

evidence:
  top_k: 8                  # evidence items per card
  use_judge: false          # grade evidence with the LLM judge
  judge_concurrency: 6      # concurrent judge calls

llm:
  provider: ""              # openai, deepseek, ollama ("" disables LLM features)
  model: ""                 # provider default when empty
  api_key: ""               # or CLAIMFORGE_LLM_API_KEY
  base_url: ""              # custom endpoint (e.g. for Ollama)
  timeout: 30               # seconds
  max_tokens: 1000

storage:
  driver: ""                # "", "memory", "sqlite"
  path: claimforge.db       # sqlite database path
`

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
