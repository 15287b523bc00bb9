/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: utils.go
Description: Shared utilities for the Akaylee replay commands. Provides configuration
loading, logging setup and input expansion used by every command.
*/

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kleascm/akaylee-repro/pkg/logging"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from files and environment
func LoadConfig() error {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// AKAYLEE_REPRO_TRACE_DIR -> repro.trace_dir
	viper.SetEnvPrefix("AKAYLEE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	return nil
}

// SetupLogging builds the session logger from the bound log_* keys
func SetupLogging() (*logging.Logger, error) {
	config := &logging.LoggerConfig{
		Level:      logging.LogLevel(viper.GetString("log_level")),
		Format:     logging.LogFormat(viper.GetString("log_format")),
		File:       viper.GetString("log_file"),
		MaxSizeMB:  viper.GetInt("log_max_size"),
		MaxBackups: viper.GetInt("log_max_backups"),
		Compress:   viper.GetBool("log_compress"),
		Timestamp:  true,
		Colors:     viper.GetBool("log_colors"),
	}

	logger, err := logging.NewLogger(config)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}
	return logger, nil
}

// ExpandInputs turns the positional arguments into an ordered file list.
// Directories contribute their regular files in name order; files keep
// the order they were given in.
func ExpandInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat input %s: %w", arg, err)
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read input directory %s: %w", arg, err)
		}
		var names []string
		for _, e := range entries {
			if e.Type().IsRegular() && !strings.HasPrefix(e.Name(), ".") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			files = append(files, filepath.Join(arg, name))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no input files found")
	}
	return files, nil
}
