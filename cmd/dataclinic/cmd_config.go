package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dataclinic/internal/config"
	"dataclinic/internal/llm"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the persisted configuration (API key, retry budget, profile)",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(configPath)
		profile := cfg.ResolveProfile()

		key := cfg.APIKey()
		keyState := "not set"
		if key != "" {
			keyState = "set (" + mask(key) + ")"
		}

		fmt.Printf("Config file:  %s\n", configPath)
		fmt.Printf("API key:      %s\n", keyState)
		fmt.Printf("Max retries:  %d\n", cfg.MaxRetries)
		fmt.Printf("Profile:      %s\n", profile.Name)
		fmt.Printf("  diagnosis:  %s (fallback: %s)\n", profile.Diagnosis.Primary, orNone(profile.Diagnosis.Fallback))
		fmt.Printf("  synthesis:  %s (fallback: %s)\n", profile.Synthesis.Primary, orNone(profile.Synthesis.Fallback))
		return nil
	},
}

var configSetKeyCmd = &cobra.Command{
	Use:   "set-key <api-key>",
	Short: "Persist the OpenRouter API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(configPath)
		cfg.OpenRouterAPIKey = args[0]
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		fmt.Printf("API key saved to %s\n", configPath)
		return nil
	},
}

var configSetRetriesCmd = &cobra.Command{
	Use:   "set-retries <n>",
	Short: "Persist the repair retry budget (0-10, clamped)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid retry count %q: %w", args[0], err)
		}
		cfg := config.Load(configPath)
		cfg.MaxRetries = n
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		saved := config.Load(configPath)
		fmt.Printf("Max retries set to %d\n", saved.MaxRetries)
		return nil
	},
}

var (
	customDiagnosisModel string
	customSynthesisModel string
)

var configSetProfileCmd = &cobra.Command{
	Use:   "set-profile <free|paid|custom>",
	Short: "Select the model profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		switch name {
		case config.ProfileFree, config.ProfilePaid:
		case config.ProfileCustom:
			if customDiagnosisModel == "" || customSynthesisModel == "" {
				return fmt.Errorf("profile custom requires --diagnosis-model and --synthesis-model")
			}
		default:
			return fmt.Errorf("unknown profile %q (expected free, paid or custom)", name)
		}

		cfg := config.Load(configPath)
		cfg.Profile = name
		if name == config.ProfileCustom {
			cfg.CustomDiagnosisModel = customDiagnosisModel
			cfg.CustomSynthesisModel = customSynthesisModel
		}
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		fmt.Printf("Profile set to %s\n", name)
		return nil
	},
}

var configTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a one-token probe to verify credentials and connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(configPath)
		apiKey := apiKeyFlag
		if apiKey == "" {
			apiKey = cfg.APIKey()
		}
		if apiKey == "" {
			return fmt.Errorf("no API key configured")
		}

		clientCfg := llm.DefaultClientConfig(apiKey)
		clientCfg.Logger = logger
		gateway := llm.NewGateway(llm.NewClientWithConfig(clientCfg), cfg.ResolveProfile(), logger)

		if err := gateway.Ping(cmd.Context()); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}
		fmt.Println("Connection OK")
		return nil
	},
}

func mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func init() {
	configSetProfileCmd.Flags().StringVar(&customDiagnosisModel, "diagnosis-model", "", "diagnosis model for the custom profile")
	configSetProfileCmd.Flags().StringVar(&customSynthesisModel, "synthesis-model", "", "synthesis model for the custom profile")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetKeyCmd)
	configCmd.AddCommand(configSetRetriesCmd)
	configCmd.AddCommand(configSetProfileCmd)
	configCmd.AddCommand(configTestCmd)
}
