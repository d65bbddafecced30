package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/oldman-go/oldman/pkg/logger"
)

const (
	EnvPrefix             = "OLDMAN"
	DefaultConfigFileProd = "/etc/oldman/config.yaml"
	DefaultConfigFileDev  = "./configs/config.yaml"
	ConfigEnvVar          = "OLDMAN_CONFIG"
)

// NewCommandConfig creates and configures a new Viper instance for a command.
// Each command should have its own viper instance to avoid configuration
// pollution.
func NewCommandConfig() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Flag definition helpers that define flags and bind them to viper keys in a single pass

func defineAndBindStringFlag(v *viper.Viper, fs *pflag.FlagSet, viperKey, flagName, shorthand, defaultVal, usage string) {
	if shorthand != "" {
		fs.StringP(flagName, shorthand, defaultVal, usage)
	} else {
		fs.String(flagName, defaultVal, usage)
	}
	bindFlag(v, fs, viperKey, flagName)
}

func defineAndBindIntFlag(v *viper.Viper, fs *pflag.FlagSet, viperKey, flagName, shorthand string, defaultVal int, usage string) {
	if shorthand != "" {
		fs.IntP(flagName, shorthand, defaultVal, usage)
	} else {
		fs.Int(flagName, defaultVal, usage)
	}
	bindFlag(v, fs, viperKey, flagName)
}

func defineAndBindBoolFlag(v *viper.Viper, fs *pflag.FlagSet, viperKey, flagName, shorthand string, defaultVal bool, usage string) {
	if shorthand != "" {
		fs.BoolP(flagName, shorthand, defaultVal, usage)
	} else {
		fs.Bool(flagName, defaultVal, usage)
	}
	bindFlag(v, fs, viperKey, flagName)
}

func defineAndBindDurationFlag(v *viper.Viper, fs *pflag.FlagSet, viperKey, flagName, shorthand string, defaultVal time.Duration, usage string) {
	if shorthand != "" {
		fs.DurationP(flagName, shorthand, defaultVal, usage)
	} else {
		fs.Duration(flagName, defaultVal, usage)
	}
	bindFlag(v, fs, viperKey, flagName)
}

// AppConfig carries the identity oldman reports in logs and metrics.
type AppConfig struct {
	Name    string `mapstructure:"name" json:"name" validate:"required"`
	Version string `mapstructure:"version" json:"version" validate:"required"`
}

func NewAppConfig() *AppConfig {
	return &AppConfig{
		Name:    "oldman",
		Version: "dev",
	}
}

func (c *AppConfig) defineAndBindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	defineAndBindStringFlag(v, fs, "app.name", "name", "", c.Name, "Application name reported in logs and metrics")
	defineAndBindStringFlag(v, fs, "app.version", "version", "", c.Version, "Application version reported in logs and metrics")
}

// SchemaConfig locates the RDFS/Hydra vocabulary and JSON-LD context files a
// registry compiles models from, and the base IRIs new resources and blank
// nodes are minted under.
type SchemaConfig struct {
	Directory   string `mapstructure:"directory" json:"directory" validate:"required"`
	DefaultLang string `mapstructure:"default_lang" json:"default_lang"`
	BaseIRI     string `mapstructure:"base_iri" json:"base_iri" validate:"required"`
	GenIDBase   string `mapstructure:"genid_base" json:"genid_base" validate:"required"`
}

func NewSchemaConfig() *SchemaConfig {
	return &SchemaConfig{
		Directory:   "./schema",
		DefaultLang: "en",
		BaseIRI:     "http://localhost/",
		GenIDBase:   "http://localhost/.well-known/genid/",
	}
}

func (c *SchemaConfig) defineAndBindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	defineAndBindStringFlag(v, fs, "schema.directory", "schema-directory", "", c.Directory, "Directory containing RDFS/Hydra schema and JSON-LD context files")
	defineAndBindStringFlag(v, fs, "schema.default_lang", "schema-default-lang", "", c.DefaultLang, "Default language tag for untagged literals")
	defineAndBindStringFlag(v, fs, "schema.base_iri", "schema-base-iri", "", c.BaseIRI, "Base IRI new resources are minted under")
	defineAndBindStringFlag(v, fs, "schema.genid_base", "schema-genid-base", "", c.GenIDBase, "Base IRI skolemized blank nodes are minted under")
}

// ApplicationConfig is the root configuration object.
type ApplicationConfig struct {
	App      *AppConfig      `mapstructure:"app" json:"app" validate:"required"`
	Schema   *SchemaConfig   `mapstructure:"schema" json:"schema" validate:"required"`
	Database *DatabaseConfig `mapstructure:"database" json:"database" validate:"required"`
	Metrics  *MetricsConfig  `mapstructure:"metrics" json:"metrics" validate:"required"`
	Logging  *LoggingConfig  `mapstructure:"logging" json:"logging" validate:"required"`
}

func NewApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{
		App:      NewAppConfig(),
		Schema:   NewSchemaConfig(),
		Database: NewDatabaseConfig(),
		Metrics:  NewMetricsConfig(),
		Logging:  NewLoggingConfig(),
	}
}

// defineAndBindFlags defines application flags and binds them to viper keys in a single pass
func (c *ApplicationConfig) defineAndBindFlags(v *viper.Viper, flagset *pflag.FlagSet) {
	// Note: config flag is defined but NOT bound to viper (special case)
	flagset.String("config", "", "Config file path")

	c.App.defineAndBindFlags(v, flagset)
	c.Schema.defineAndBindFlags(v, flagset)
	c.Database.defineAndBindFlags(v, flagset)
	c.Metrics.defineAndBindFlags(v, flagset)
	c.Logging.AddFlags(flagset)
}

// ConfigureFlags defines configuration flags and binds them to viper for precedence handling
func (c *ApplicationConfig) ConfigureFlags(v *viper.Viper, flagset *pflag.FlagSet) {
	flagset.AddGoFlagSet(flag.CommandLine)
	c.defineAndBindFlags(v, flagset)
}

// bindFlag is a simple helper to bind an existing flag to a viper key
func bindFlag(v *viper.Viper, fs *pflag.FlagSet, viperKey, flagName string) {
	if err := v.BindPFlag(viperKey, fs.Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("failed to bind flag %s to %s: %v", flagName, viperKey, err))
	}
}

// LoadConfig loads configuration from multiple sources with proper precedence:
//  1. Command-line flags (highest priority)
//  2. Environment variables (OLDMAN_ prefix)
//  3. Configuration file
//  4. Defaults (lowest priority)
//
// The viper instance should already be configured and have flags bound via ConfigureFlags()
func LoadConfig(v *viper.Viper, flags *pflag.FlagSet) (*ApplicationConfig, error) {
	config := NewApplicationConfig()

	configFile := getConfigFilePath(flags, v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := v.UnmarshalExact(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.Logging.BindEnv(flags)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// getConfigFilePath determines the config file path based on precedence:
// 1. --config flag
// 2. OLDMAN_CONFIG environment variable
// 3. Default paths
func getConfigFilePath(flags *pflag.FlagSet, v *viper.Viper) string {
	if flags != nil {
		if configFlag := flags.Lookup("config"); configFlag != nil && configFlag.Changed {
			return configFlag.Value.String()
		}
	}

	if configEnv := os.Getenv(ConfigEnvVar); configEnv != "" {
		return configEnv
	}

	defaultPaths := []string{
		DefaultConfigFileDev,
		DefaultConfigFileProd,
	}

	for _, path := range defaultPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// Validate validates the configuration using struct tags
func (c *ApplicationConfig) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	return nil
}

func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		messages = append(messages, "Configuration validation failed:")

		for _, fieldError := range validationErrors {
			fieldPath := getFieldPath(fieldError)

			msg := fmt.Sprintf("  - Field '%s' failed validation: %s", fieldPath, fieldError.Tag())
			if fieldError.Param() != "" {
				msg += fmt.Sprintf(" (param: %s)", fieldError.Param())
			}
			msg += fmt.Sprintf("\n    Value: %v", fieldError.Value())
			msg += getHelpfulHint(fieldPath)

			messages = append(messages, msg)
		}

		return fmt.Errorf("%s", strings.Join(messages, "\n"))
	}

	return err
}

func getFieldPath(fieldError validator.FieldError) string {
	namespace := fieldError.Namespace()
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		return "Config." + strings.Join(parts[1:], ".")
	}
	return namespace
}

func getHelpfulHint(fieldPath string) string {
	parts := strings.Split(fieldPath, ".")
	if len(parts) <= 1 {
		return ""
	}

	configParts := parts[1:]
	var lowerParts []string
	for _, part := range configParts {
		lowerParts = append(lowerParts, strings.ToLower(part))
	}
	configPath := strings.Join(lowerParts, ".")

	flagName := "--" + strings.ReplaceAll(strings.ReplaceAll(configPath, ".", "-"), "_", "-")
	envVarName := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(configPath, ".", "_"))

	hint := "\n    Please provide via:\n"
	hint += fmt.Sprintf("      - Flag: %s\n", flagName)
	hint += fmt.Sprintf("      - Environment variable: %s\n", envVarName)
	hint += fmt.Sprintf("      - Config file: %s", configPath)

	return hint
}

// DisplayConfig logs the merged configuration at startup. Sensitive values
// are redacted.
func (c *ApplicationConfig) DisplayConfig(ctx *logger.ContextLogger) {
	displayCopy := c.redactSensitiveValues()

	jsonBytes, err := json.MarshalIndent(displayCopy, "", "  ")
	if err != nil {
		ctx.WithError(err).Error("error marshaling config for display")
		return
	}

	ctx.With("config", string(jsonBytes)).Info("merged configuration")
}

// redactSensitiveValues creates a copy of the config with sensitive values
// redacted. It uses reflection to automatically redact any field whose name
// contains sensitive keywords (password, secret, token, key, cert).
func (c *ApplicationConfig) redactSensitiveValues() *ApplicationConfig {
	jsonBytes, err := json.Marshal(c)
	if err != nil {
		return c
	}

	var dup ApplicationConfig
	if err := json.Unmarshal(jsonBytes, &dup); err != nil {
		return c
	}

	redactSensitiveFields(reflect.ValueOf(&dup).Elem())

	return &dup
}

// redactSensitiveFields recursively walks through a struct and redacts any
// string field whose name matches sensitive patterns
func redactSensitiveFields(v reflect.Value) {
	if !v.IsValid() {
		return
	}

	switch v.Kind() {
	case reflect.Ptr:
		if !v.IsNil() {
			redactSensitiveFields(v.Elem())
		}

	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			fieldType := t.Field(i)

			if !field.CanSet() {
				continue
			}

			if isSensitiveField(fieldType.Name) {
				if field.Kind() == reflect.String && field.String() != "" {
					field.SetString("***")
				}
			} else {
				redactSensitiveFields(field)
			}
		}

	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			redactSensitiveFields(v.Index(i))
		}

	case reflect.Map:
		for _, key := range v.MapKeys() {
			mapValue := v.MapIndex(key)
			if mapValue.Kind() == reflect.Ptr || mapValue.Kind() == reflect.Struct {
				redactSensitiveFields(mapValue)
			}
		}
	}
}

// GetJSONConfig returns the configuration as a JSON string with sensitive
// values redacted.
func (c *ApplicationConfig) GetJSONConfig() (string, error) {
	displayCopy := c.redactSensitiveValues()

	jsonBytes, err := json.MarshalIndent(displayCopy, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error marshaling config to JSON: %w", err)
	}

	return string(jsonBytes), nil
}

// isSensitiveField checks if a field name contains sensitive data keywords
func isSensitiveField(fieldName string) bool {
	sensitiveFields := []string{
		"password", "secret", "token", "key", "cert",
	}

	lowerName := strings.ToLower(fieldName)
	for _, sensitive := range sensitiveFields {
		if strings.Contains(lowerName, sensitive) {
			return true
		}
	}

	return false
}
