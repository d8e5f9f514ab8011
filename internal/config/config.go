package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Audit  AuditConfig  `yaml:"audit" mapstructure:"audit"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// AuditConfig names the workbook sheets, identifier columns, and rule file
// used by an audit run.
type AuditConfig struct {
	SecondarySheet         string `yaml:"secondary_sheet" mapstructure:"secondary_sheet"`
	TruthSheet             string `yaml:"truth_sheet" mapstructure:"truth_sheet"`
	MappingSheet           string `yaml:"mapping_sheet" mapstructure:"mapping_sheet"`
	MappingSecondaryColumn string `yaml:"mapping_secondary_column" mapstructure:"mapping_secondary_column"`
	MappingTruthColumn     string `yaml:"mapping_truth_column" mapstructure:"mapping_truth_column"`
	SecondaryIDColumn      string `yaml:"secondary_id_column" mapstructure:"secondary_id_column"`
	TruthIDColumn          string `yaml:"truth_id_column" mapstructure:"truth_id_column"`
	RulesPath              string `yaml:"rules_path" mapstructure:"rules_path"`
}

// ServerConfig configures the upload server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
	// MaxUploadMB bounds the multipart workbook size.
	MaxUploadMB int `yaml:"max_upload_mb" mapstructure:"max_upload_mb"`
	// AuditsPerMinute rate-limits the audit endpoint.
	AuditsPerMinute int      `yaml:"audits_per_minute" mapstructure:"audits_per_minute"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CENSUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("audit.secondary_sheet", "Secondary Data")
	v.SetDefault("audit.truth_sheet", "Truth Data")
	v.SetDefault("audit.mapping_sheet", "Mapping Sheet")
	v.SetDefault("audit.mapping_secondary_column", "Secondary Column")
	v.SetDefault("audit.mapping_truth_column", "Truth Column")
	v.SetDefault("audit.secondary_id_column", "Employee ID")
	v.SetDefault("audit.truth_id_column", "Employee ID")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.audits_per_minute", 30)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
