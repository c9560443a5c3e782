package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"tswnano/internal/invoker"
	"tswnano/internal/logger"
	"tswnano/internal/provider/local"
	"tswnano/internal/stringprocessing"
	"tswnano/internal/summary"
	"tswnano/pkg/nanotypes"
)

// EnvPrefix prefixes every environment variable and .env key tswnano reads.
const EnvPrefix = "TSW"

// Configuration keys.
const (
	KeyEndpoint             = "endpoint"
	KeyAPIKey               = "api_key"
	KeyModel                = "model"
	KeyAvailabilityPolicy   = "availability_policy"
	KeyMaxInputChars        = "max_input_chars"
	KeyChunkSize            = "chunk_size"
	KeyChunkOverlap         = "chunk_overlap"
	KeyLongContextThreshold = "long_context_threshold"
	KeyCommandsFile         = "commands_file"
	KeyLogLevel             = "log_level"
)

// Settings is the resolved configuration.
type Settings struct {
	Endpoint             string
	APIKey               string
	Model                string
	AvailabilityPolicy   nanotypes.AvailabilityPolicy
	MaxInputChars        int
	ChunkSize            int
	ChunkOverlap         int
	LongContextThreshold int
	CommandsFile         string
	LogLevel             string
}

// ConfigPaths reports which configuration files were found and loaded.
type ConfigPaths struct {
	ConfigDir       string
	ConfigDirExists bool
	ConfigEnvPath   string
	ConfigEnvLoaded bool
	LocalEnvPath    string
	LocalEnvLoaded  bool
}

// ConfigurationOptions locate the .env files. Empty directories fall back to
// the user config directory and the working directory.
type ConfigurationOptions struct {
	ConfigDir string
	WorkDir   string
	// SkipDotEnv ignores .env files; test mode sets it.
	SkipDotEnv bool
}

// ConfigurationService resolves settings from, lowest to highest priority:
// defaults, the user config .env, the local .env, TSW_* environment variables
// and bound command-line flags.
type ConfigurationService struct {
	initialized bool
	opts        ConfigurationOptions
	v           *viper.Viper
	paths       ConfigPaths
}

// NewConfigurationService creates a service with its own viper instance.
func NewConfigurationService(opts ConfigurationOptions) *ConfigurationService {
	return &ConfigurationService{
		opts: opts,
		v:    viper.New(),
	}
}

// Name returns "configuration".
func (c *ConfigurationService) Name() string {
	return "configuration"
}

// Viper exposes the underlying instance so the CLI can bind flags to it.
func (c *ConfigurationService) Viper() *viper.Viper {
	return c.v
}

// Initialize loads every configuration layer.
func (c *ConfigurationService) Initialize() error {
	if c.initialized {
		return nil
	}
	logger.ServiceOperation("configuration", "initialize", "starting")

	c.loadDefaults()

	c.v.SetEnvPrefix(EnvPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	c.v.AutomaticEnv()

	if !c.opts.SkipDotEnv {
		if err := c.loadDotEnvFiles(); err != nil {
			return err
		}
	}

	c.initialized = true
	logger.ServiceOperation("configuration", "initialize", "completed")
	return nil
}

func (c *ConfigurationService) loadDefaults() {
	c.v.SetDefault(KeyEndpoint, local.DefaultEndpoint)
	c.v.SetDefault(KeyAPIKey, "")
	c.v.SetDefault(KeyModel, "")
	c.v.SetDefault(KeyAvailabilityPolicy, string(nanotypes.PolicyStrict))
	c.v.SetDefault(KeyMaxInputChars, invoker.DefaultMaxInputChars)
	c.v.SetDefault(KeyChunkSize, stringprocessing.DefaultChunkSize)
	c.v.SetDefault(KeyChunkOverlap, stringprocessing.DefaultChunkOverlap)
	c.v.SetDefault(KeyLongContextThreshold, summary.DefaultLongContextThreshold)
	c.v.SetDefault(KeyCommandsFile, "")
	c.v.SetDefault(KeyLogLevel, "")
}

// loadDotEnvFiles merges the config .env and then the local .env as the
// config layer, so environment variables and flags still win.
func (c *ConfigurationService) loadDotEnvFiles() error {
	configDir := c.opts.ConfigDir
	if configDir == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			configDir = filepath.Join(dir, "tswnano")
		}
	}
	workDir := c.opts.WorkDir
	if workDir == "" {
		if dir, err := os.Getwd(); err == nil {
			workDir = dir
		}
	}

	if configDir != "" {
		c.paths.ConfigDir = configDir
		c.paths.ConfigDirExists = dirExists(configDir)
		c.paths.ConfigEnvPath = filepath.Join(configDir, ".env")
		loaded, err := c.mergeDotEnv(c.paths.ConfigEnvPath)
		if err != nil {
			return err
		}
		c.paths.ConfigEnvLoaded = loaded
	}

	if workDir != "" {
		c.paths.LocalEnvPath = filepath.Join(workDir, ".env")
		loaded, err := c.mergeDotEnv(c.paths.LocalEnvPath)
		if err != nil {
			return err
		}
		c.paths.LocalEnvLoaded = loaded
	}
	return nil
}

// mergeDotEnv reads TSW_* keys from a .env file. A missing file is not an error.
func (c *ConfigurationService) mergeDotEnv(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read .env file %s: %w", path, err)
	}

	envMap, err := godotenv.Unmarshal(string(data))
	if err != nil {
		return false, fmt.Errorf("failed to parse .env file %s: %w", path, err)
	}

	values := make(map[string]interface{})
	for key, value := range envMap {
		if name, ok := strings.CutPrefix(key, EnvPrefix+"_"); ok {
			values[strings.ToLower(name)] = value
		}
	}
	if err := c.v.MergeConfigMap(values); err != nil {
		return false, fmt.Errorf("failed to merge .env file %s: %w", path, err)
	}

	logger.Debug("Loaded .env file", "path", path, "keys", len(values))
	return true, nil
}

// GetConfigValue returns a value as a string; unknown keys yield "".
func (c *ConfigurationService) GetConfigValue(key string) (string, error) {
	if !c.initialized {
		return "", fmt.Errorf("configuration service not initialized")
	}
	return c.v.GetString(key), nil
}

// SetConfigValue overrides a key above every other layer.
func (c *ConfigurationService) SetConfigValue(key string, value interface{}) error {
	if !c.initialized {
		return fmt.Errorf("configuration service not initialized")
	}
	c.v.Set(key, value)
	return nil
}

// GetConfigurationPaths reports the .env files considered at initialization.
func (c *ConfigurationService) GetConfigurationPaths() (*ConfigPaths, error) {
	if !c.initialized {
		return nil, fmt.Errorf("configuration service not initialized")
	}
	paths := c.paths
	return &paths, nil
}

// Settings resolves and validates the typed configuration.
func (c *ConfigurationService) Settings() (Settings, error) {
	if !c.initialized {
		return Settings{}, fmt.Errorf("configuration service not initialized")
	}

	policy, err := nanotypes.ParseAvailabilityPolicy(c.v.GetString(KeyAvailabilityPolicy))
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		Endpoint:             c.v.GetString(KeyEndpoint),
		APIKey:               c.v.GetString(KeyAPIKey),
		Model:                c.v.GetString(KeyModel),
		AvailabilityPolicy:   policy,
		MaxInputChars:        c.v.GetInt(KeyMaxInputChars),
		ChunkSize:            c.v.GetInt(KeyChunkSize),
		ChunkOverlap:         c.v.GetInt(KeyChunkOverlap),
		LongContextThreshold: c.v.GetInt(KeyLongContextThreshold),
		CommandsFile:         c.v.GetString(KeyCommandsFile),
		LogLevel:             c.v.GetString(KeyLogLevel),
	}

	if s.MaxInputChars < 0 {
		return Settings{}, fmt.Errorf("%s must not be negative, got %d", KeyMaxInputChars, s.MaxInputChars)
	}
	if err := stringprocessing.ValidateChunking(s.ChunkSize, s.ChunkOverlap); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
