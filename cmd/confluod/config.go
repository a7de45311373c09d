package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/awesome-nfv/confluo"
)

func init() {
	// Bind command-line flags
	pflag.String("config", "", "Path to the configuration file")
	pflag.String("data-folder", "./data", "Path to the data folder")
	pflag.String("host", "0.0.0.0:9090", "Host and port for the HTTP API")
	pflag.String("auth-secret", "", "JWT signing key; empty disables authentication")

	f := pflag.CommandLine
	normalizeFunc := f.GetNormalizeFunc()
	f.SetNormalizeFunc(func(fs *pflag.FlagSet, name string) pflag.NormalizedName {
		result := normalizeFunc(fs, name)
		name = strings.ReplaceAll(string(result), "-", "_")
		return pflag.NormalizedName(name)
	})
}

func LoadConfig() error {
	// Set default values
	viper.SetDefault("host", "0.0.0.0:9090")
	viper.SetDefault("data_folder", "./data")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Parse command-line flags
	pflag.Parse()

	// Bind command-line flags to Viper
	viper.BindPFlags(pflag.CommandLine)

	// Bind environment variables
	viper.SetEnvPrefix("confluo")
	viper.AutomaticEnv()

	// Read configuration file if specified
	configFile := viper.GetString("config")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("confluo.conf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configFile != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg confluo.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("error unmarshalling config: %w", err)
	}

	confluo.Configure(cfg)
	return nil
}
