package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/consultora/internal/blob"
	"github.com/mesh-intelligence/consultora/internal/logging"
	"github.com/mesh-intelligence/consultora/internal/paths"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "CONSULTORA"

	cfgKeyDataDir     = "data_dir"
	cfgKeyLogLevel    = "log_level"
	cfgKeyLogFormat   = "log_format"
	cfgKeyPhoneRegion = "phone_region"

	cfgKeyBackupDriver = "backup.driver"
	cfgKeyBackupFSRoot = "backup.fs_root"
	cfgKeyS3Bucket     = "backup.s3.bucket"
	cfgKeyS3Region     = "backup.s3.region"
	cfgKeyS3Endpoint   = "backup.s3.endpoint"
	cfgKeyS3PathStyle  = "backup.s3.path_style"

	defaultPhoneRegion = "BO"
)

// configDefaults lists every key with its default so environment overrides
// reach nested keys too.
var configDefaults = map[string]any{
	cfgKeyLogLevel:     logging.DefaultLevel,
	cfgKeyLogFormat:    logging.FormatText,
	cfgKeyPhoneRegion:  defaultPhoneRegion,
	cfgKeyBackupDriver: string(blob.DriverFilesystem),
	cfgKeyBackupFSRoot: "",
	cfgKeyS3Bucket:     "",
	cfgKeyS3Region:     "",
	cfgKeyS3Endpoint:   "",
	cfgKeyS3PathStyle:  false,
}

// loadConfig loads <configDir>/.env into the process environment, then reads
// config.yaml with Viper. A missing config.yaml or .env is not an error.
// Every key can be overridden by CONSULTORA_<KEY> with dots as underscores.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := godotenv.Load(paths.EnvFile(configDir)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", paths.EnvFileName, err)
	}

	v := viper.New()
	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	DataDir     string       `yaml:"data_dir"`
	LogLevel    string       `yaml:"log_level"`
	LogFormat   string       `yaml:"log_format"`
	PhoneRegion string       `yaml:"phone_region"`
	Backup      backupConfig `yaml:"backup"`
}

type backupConfig struct {
	Driver string `yaml:"driver"`
	FSRoot string `yaml:"fs_root,omitempty"`
}

// writeConfigIfMissing creates config.yaml with default values if the file
// does not exist. Reports whether it wrote the file.
func writeConfigIfMissing(path, dataDir string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	cfg := configFile{
		DataDir:     dataDir,
		LogLevel:    logging.DefaultLevel,
		LogFormat:   logging.FormatText,
		PhoneRegion: defaultPhoneRegion,
		Backup:      backupConfig{Driver: string(blob.DriverFilesystem)},
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
