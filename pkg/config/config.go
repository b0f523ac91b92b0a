/*
Package config manages TOML config for wordvault binaries.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/bastiangx/wordvault/internal/store"
	"github.com/bastiangx/wordvault/internal/utils"
)

// ConfigEnv names a config file to load when no --config flag is given.
const ConfigEnv = "WORDVAULT_CONFIG"

// Config holds the entire config structure
type Config struct {
	Dict   DictConfig   `toml:"dict"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// DictConfig holds capacities and the default locale for new dictionaries.
type DictConfig struct {
	MaxUnigramCount  int    `toml:"max_unigram_count"`
	MaxBigramCount   int    `toml:"max_bigram_count"`
	GCBlockingWindow int    `toml:"gc_blocking_window"`
	Locale           string `toml:"locale"`
}

// ServerConfig has IPC server related options.
type ServerConfig struct {
	RespectGCWindow bool `toml:"respect_gc_window"`
	AutoFlushOps    int  `toml:"auto_flush_ops"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level string `toml:"level"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/
// 2. ~/Library/Application Support/ (macOS)
// 3. Current executable dir
// 4. builtin defaults
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		execDir, execErr := utils.ExecutableDir()
		if execErr != nil {
			return "", execErr
		}
		return execDir, nil
	}
	primaryPath := filepath.Join(homeDir, ".config", "wordvault")
	if result := utils.CheckDir(primaryPath); result.Writable {
		return primaryPath, nil
	}
	// Not conventional, fallback from ~/.config if not writable
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", "wordvault")
	if result := utils.CheckDir(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.ExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag, or WORDVAULT_CONFIG when the flag is empty
// 2. Default path: [UserConfigDir]/wordvault/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	var config *Config
	var err error

	if customConfigPath == "" {
		customConfigPath = os.Getenv(ConfigEnv)
	}
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err = LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err = InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Dict: DictConfig{
			MaxUnigramCount:  store.DefaultMaxUnigrams,
			MaxBigramCount:   store.DefaultMaxNgrams,
			GCBlockingWindow: store.DefaultGCBlockingWindow,
			Locale:           "en",
		},
		Server: ServerConfig{
			RespectGCWindow: true,
			AutoFlushOps:    128,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks value ranges before a config is put to use.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Dict,
		validation.Field(&c.Dict.MaxUnigramCount, validation.Required, validation.Min(1)),
		validation.Field(&c.Dict.MaxBigramCount, validation.Required, validation.Min(1)),
		validation.Field(&c.Dict.GCBlockingWindow, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("dict: %w", err)
	}
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.AutoFlushOps, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log: invalid level %q", c.Log.Level)
		}
	}
	return nil
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOML(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config in %s: %w", configPath, err)
	}
	return config, nil
}

// tryPartialParse salvages well-formed sections out of a broken TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	loose, err := utils.ParseTOMLLoose(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if dictSection, ok := utils.Section(loose, "dict"); ok {
		extractDictConfig(dictSection, &config.Dict)
	}
	if serverSection, ok := utils.Section(loose, "server"); ok {
		extractServerConfig(serverSection, &config.Server)
	}
	if logSection, ok := utils.Section(loose, "log"); ok {
		extractLogConfig(logSection, &config.Log)
	}
	if err := config.Validate(); err != nil {
		log.Warnf("Salvaged config is invalid (%v). Using all defaults.", err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// extractDictConfig extracts dictionary configuration from a map
func extractDictConfig(data map[string]any, dict *DictConfig) {
	if val, ok := utils.SectionInt(data, "max_unigram_count"); ok {
		dict.MaxUnigramCount = val
	}
	if val, ok := utils.SectionInt(data, "max_bigram_count"); ok {
		dict.MaxBigramCount = val
	}
	if val, ok := utils.SectionInt(data, "gc_blocking_window"); ok {
		dict.GCBlockingWindow = val
	}
	if val, ok := utils.SectionString(data, "locale"); ok {
		dict.Locale = val
	}
}

// extractServerConfig extracts server configuration from a map
func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.SectionBool(data, "respect_gc_window"); ok {
		server.RespectGCWindow = val
	}
	if val, ok := utils.SectionInt(data, "auto_flush_ops"); ok {
		server.AutoFlushOps = val
	}
}

// extractLogConfig extracts logging config from a map
func extractLogConfig(data map[string]any, logc *LogConfig) {
	if val, ok := utils.SectionString(data, "level"); ok {
		logc.Level = val
	}
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() error {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return err
	}
	configDir := filepath.Dir(defaultPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return err
	}
	config := DefaultConfig()
	return utils.SaveTOML(defaultPath, config)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.AbsPath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOML(configPath, config)
}

// Update changes dictionary capacity values and saves to file. Nil
// pointers leave a field alone.
func (c *Config) Update(configPath string, maxUnigrams, maxBigrams, gcWindow *int) error {
	dict := &c.Dict
	if maxUnigrams != nil {
		dict.MaxUnigramCount = *maxUnigrams
	}
	if maxBigrams != nil {
		dict.MaxBigramCount = *maxBigrams
	}
	if gcWindow != nil {
		dict.GCBlockingWindow = *gcWindow
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if configPath == "" {
		log.Debugf("No config file in use, update kept in memory only")
		return nil
	}
	return SaveConfig(c, configPath)
}
