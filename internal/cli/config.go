package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/backlog/internal/logging"
	"github.com/mesh-intelligence/backlog/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "BACKLOG"
)

// Config keys.
const (
	cfgKeyBackend         = "backend"
	cfgKeyDataDir         = "data_dir"
	cfgKeyDBFile          = "db_file"
	cfgKeyLogLevel        = "log_level"
	cfgKeyLogFormat       = "log_format"
	cfgKeyDependencyTeams = "dependency_teams"
)

// settings is the decoded config.yaml merged with BACKLOG_* environment
// overrides. It is also the shape written by init.
type settings struct {
	Backend         string   `mapstructure:"backend" yaml:"backend"`
	DataDir         string   `mapstructure:"data_dir" yaml:"data_dir,omitempty"`
	DBFile          string   `mapstructure:"db_file" yaml:"db_file,omitempty"`
	LogLevel        string   `mapstructure:"log_level" yaml:"log_level"`
	LogFormat       string   `mapstructure:"log_format" yaml:"log_format"`
	DependencyTeams []string `mapstructure:"dependency_teams" yaml:"dependency_teams"`
}

func defaultSettings() settings {
	return settings{
		Backend:         types.BackendSQLite,
		LogLevel:        "warn",
		LogFormat:       logging.FormatText,
		DependencyTeams: append([]string(nil), types.DefaultDependencyTeams...),
	}
}

// loadSettings reads config.yaml from configDir. A missing file yields the
// defaults; BACKLOG_* variables override file values.
func loadSettings(configDir string) (settings, error) {
	def := defaultSettings()

	v := viper.New()
	v.SetDefault(cfgKeyBackend, def.Backend)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyDBFile, "")
	v.SetDefault(cfgKeyLogLevel, def.LogLevel)
	v.SetDefault(cfgKeyLogFormat, def.LogFormat)
	v.SetDefault(cfgKeyDependencyTeams, def.DependencyTeams)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return settings{}, fmt.Errorf("read config: %w", err)
		}
	}
	// data_dir ranks above BACKLOG_DATA_DIR, so it is taken before env
	// lookups are enabled.
	dataDir := v.GetString(cfgKeyDataDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return settings{}, fmt.Errorf("decode config: %w", err)
	}
	s.DataDir = dataDir
	// An environment override arrives as one comma-separated string.
	var teams []string
	for _, t := range s.DependencyTeams {
		teams = append(teams, splitList(t)...)
	}
	s.DependencyTeams = teams
	return s, nil
}

// storeConfig builds the backend configuration for dataDir.
func (s settings) storeConfig(dataDir string) types.Config {
	return types.Config{
		Backend:         s.Backend,
		DataDir:         dataDir,
		DBFile:          s.DBFile,
		DependencyTeams: s.DependencyTeams,
	}
}

// writeConfigIfMissing creates config.yaml with s if the file does not
// exist. It reports whether it wrote the file.
func writeConfigIfMissing(configDir string, s settings) (bool, error) {
	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&s)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# backlog configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return false, err
	}
	return true, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
