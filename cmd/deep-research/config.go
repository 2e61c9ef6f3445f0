// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/deep-research/internal/archive"
	"github.com/pdiddy/deep-research/pkg/types"
)

const envPrefix = "DEEP_RESEARCH"

// extraEnv binds keys that have no default value, and therefore no
// automatic environment lookup, plus conventional variable names accepted in
// addition to the DEEP_RESEARCH_* form.
var extraEnv = map[string][]string{
	"search.google.api_key":   {"GOOGLE_SEARCH_API_KEY"},
	"search.google.engine_id": {"GOOGLE_SEARCH_ENGINE_ID"},
	"generation.api_key":      nil,
	"generation.model":        nil,
	"generation.base_url":     nil,
	"output.archive":          nil,
}

// providerEnv names the conventional API key variable per provider. It is
// consulted only when generation.api_key is unset.
var providerEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"gemini":    "GOOGLE_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("deep-research")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "deep-research"))
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := setDefaults(viper.GetViper(), types.DefaultResearchConfig()); err != nil {
		fmt.Fprintln(os.Stderr, "warning: registering defaults:", err)
	}
	for key, names := range extraEnv {
		_ = viper.BindEnv(append([]string{key, envName(key)}, names...)...)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintln(os.Stderr, "warning: reading config:", err)
		}
	}
}

// setDefaults registers every leaf of defaults with v so that environment
// variables can override keys absent from the config file.
func setDefaults(v *viper.Viper, defaults types.ResearchConfig) error {
	data, err := yaml.Marshal(defaults)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return err
	}
	var walk func(prefix string, m map[string]any)
	walk = func(prefix string, m map[string]any) {
		for k, val := range m {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if sub, ok := val.(map[string]any); ok {
				walk(key, sub)
				continue
			}
			v.SetDefault(key, val)
		}
	}
	walk("", tree)
	return nil
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// loadConfig decodes the merged viper state over the defaults.
func loadConfig() (types.ResearchConfig, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.ResearchConfig, error) {
	c := types.DefaultResearchConfig()
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding configuration: %w", err)
	}
	if c.Generation.APIKey == "" {
		if name, ok := providerEnv[strings.ToLower(c.Generation.Provider)]; ok {
			c.Generation.APIKey = os.Getenv(name)
		}
	}
	return c, nil
}

// bindFlags binds each flag to a configuration key so that an explicitly set
// flag overrides the config file and environment.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

// redacted returns c with credentials masked for display.
func redacted(c types.ResearchConfig) types.ResearchConfig {
	mask := func(s *string) {
		if *s != "" {
			*s = "****"
		}
	}
	mask(&c.Search.Google.APIKey)
	mask(&c.Search.DuckDuckGo.APIKey)
	mask(&c.Generation.APIKey)
	return c
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Config prints the configuration after merging defaults, the config file,
environment variables, .env, and .secrets/. Credentials are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		return archive.Encode(cmd.OutOrStdout(), redacted(cfg), format)
	},
}

func init() {
	configCmd.Flags().String("format", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(configCmd)
}
