package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zpam/playtennis/pkg/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Generate and manage playtennis configuration files`,
}

var configGenCmd = &cobra.Command{
	Use:   "generate [config-file]",
	Short: "Generate default configuration file",
	Long:  `Generate a configuration file holding every option at its default value`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := "config.yaml"
		if len(args) > 0 {
			configPath = args[0]
		}

		if _, err := os.Stat(configPath); err == nil {
			overwrite, _ := cmd.Flags().GetBool("force")
			if !overwrite {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
			}
		}

		if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("✅ Configuration file generated: %s\n", configPath)
		fmt.Printf("📝 Edit the file to point at another dataset or change the floor\n")
		fmt.Printf("🚀 Use 'playtennis serve --config %s' to use the configuration\n", configPath)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate a configuration file for syntax and logical errors`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := args[0]

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("❌ Configuration validation failed: %w", err)
		}

		warnings := validateConfigLogic(cfg)

		fmt.Printf("✅ Configuration is valid: %s\n", configPath)
		if len(warnings) > 0 {
			fmt.Printf("\n⚠️  Warnings:\n")
			for _, warning := range warnings {
				fmt.Printf("  - %s\n", warning)
			}
		}

		fmt.Printf("\n📊 Configuration Summary:\n")
		fmt.Printf("  Dataset: %s\n", cfg.Dataset.Path)
		fmt.Printf("  Label column: %s\n", cfg.Dataset.Label)
		fmt.Printf("  Features: %s\n", describeFeatures(cfg))
		fmt.Printf("  Floor: %g\n", cfg.Model.Floor)
		fmt.Printf("  Cache: %s\n", cfg.Cache.Backend)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [config-file]",
	Short: "Show current configuration",
	Long:  `Display the configuration with all values`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configFile
		if len(args) > 0 {
			path = args[0]
		}

		cfg, err := config.LoadConfig(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if path != "" {
			fmt.Printf("Configuration: %s\n\n", path)
		} else {
			fmt.Printf("Default Configuration:\n\n")
		}

		fmt.Printf("📁 Dataset:\n")
		fmt.Printf("  Path: %s\n", cfg.Dataset.Path)
		fmt.Printf("  Label column: %s\n", cfg.Dataset.Label)
		fmt.Printf("  Features: %s\n", describeFeatures(cfg))

		fmt.Printf("\n🧮 Model:\n")
		fmt.Printf("  Floor: %g\n", cfg.Model.Floor)

		fmt.Printf("\n💾 Cache:\n")
		fmt.Printf("  Backend: %s\n", cfg.Cache.Backend)
		switch cfg.Cache.Backend {
		case "memory":
			fmt.Printf("  Size: %d\n", cfg.Cache.Size)
		case "redis":
			fmt.Printf("  Redis: %s (db %d, prefix %s)\n", cfg.Cache.Redis.RedisURL, cfg.Cache.Redis.DatabaseNum, cfg.Cache.Redis.KeyPrefix)
			fmt.Printf("  TTL: %s\n", cfg.Cache.TTL)
		}

		fmt.Printf("\n🌐 Server:\n")
		fmt.Printf("  Address: %s\n", cfg.Server.Address)
		fmt.Printf("  Timeouts: read %dms, write %dms\n", cfg.Server.ReadTimeoutMs, cfg.Server.WriteTimeoutMs)
		fmt.Printf("  Title: %s\n", cfg.Server.Title)

		fmt.Printf("\n📝 Logging:\n")
		fmt.Printf("  Level: %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
		if cfg.Logging.File != "" {
			fmt.Printf("  File: %s (max %dMB, %d backups)\n", cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
		}
		return nil
	},
}

// validateConfigLogic reports settings that are valid but likely mistakes
func validateConfigLogic(cfg *config.Config) []string {
	var warnings []string

	if cfg.Model.Floor > 0.01 {
		warnings = append(warnings, "Floor is large - unseen values will barely affect predictions")
	}
	if _, err := os.Stat(cfg.Dataset.Path); err != nil {
		warnings = append(warnings, fmt.Sprintf("Dataset file not accessible: %s", cfg.Dataset.Path))
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.TTL == "" {
		warnings = append(warnings, "Redis cache entries never expire (cache.ttl is empty)")
	}

	seen := make(map[string]bool)
	for _, f := range cfg.Dataset.Features {
		if seen[f] {
			warnings = append(warnings, fmt.Sprintf("Feature %s is listed more than once", f))
		}
		seen[f] = true
	}

	return warnings
}

func describeFeatures(cfg *config.Config) string {
	if len(cfg.Dataset.Features) == 0 {
		return "(every non-label column)"
	}
	return fmt.Sprintf("%v", cfg.Dataset.Features)
}

func init() {
	configCmd.AddCommand(configGenCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configGenCmd.Flags().Bool("force", false, "Overwrite existing config file")
}
