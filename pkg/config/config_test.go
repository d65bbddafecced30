package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLoadConfig is a helper that loads config (flags must already be configured and parsed)
func testLoadConfig(v *viper.Viper, flags *pflag.FlagSet) (*ApplicationConfig, error) {
	return LoadConfig(v, flags)
}

// TestConfigPrecedence_CommandLineOverridesEnvVar tests that command-line flags
// have higher precedence than environment variables
func TestConfigPrecedence_CommandLineOverridesEnvVar(t *testing.T) {
	os.Setenv("OLDMAN_APP_NAME", "env-name")
	defer os.Unsetenv("OLDMAN_APP_NAME")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg := NewApplicationConfig()

	v := NewCommandConfig()
	cfg.ConfigureFlags(v, flags)

	err := flags.Parse([]string{"--name=cli-name"})
	require.NoError(t, err)

	loadedCfg, err := testLoadConfig(v, flags)
	require.NoError(t, err)

	assert.Equal(t, "cli-name", loadedCfg.App.Name, "Command-line flag should override environment variable")
}

// TestConfigPrecedence_EnvVarOverridesConfigFile tests that environment variables
// have higher precedence than config file values
func TestConfigPrecedence_EnvVarOverridesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configYAML := `
app:
  name: file-name
  version: 1.0.0
schema:
  directory: ./schema
  base_iri: http://localhost/
  genid_base: http://localhost/.well-known/genid/
metrics:
  host: localhost
  port: 8080
database:
  dialect: postgres
`
	err := os.WriteFile(configFile, []byte(configYAML), 0o644)
	require.NoError(t, err)

	os.Setenv("OLDMAN_APP_NAME", "env-name")
	defer os.Unsetenv("OLDMAN_APP_NAME")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg := NewApplicationConfig()

	v := NewCommandConfig()
	cfg.ConfigureFlags(v, flags)

	err = flags.Parse([]string{"--config=" + configFile})
	require.NoError(t, err)

	loadedCfg, err := testLoadConfig(v, flags)
	require.NoError(t, err)

	assert.Equal(t, "env-name", loadedCfg.App.Name, "Environment variable should override config file")
}

// TestConfigPrecedence_ConfigFileOverridesDefaults tests that config file values
// have higher precedence than default values
func TestConfigPrecedence_ConfigFileOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configYAML := `
app:
  name: file-name
  version: 2.0.0
schema:
  directory: ./schema
  base_iri: http://localhost/
  genid_base: http://localhost/.well-known/genid/
metrics:
  host: localhost
  port: 9999
database:
  dialect: postgres
`
	err := os.WriteFile(configFile, []byte(configYAML), 0o644)
	require.NoError(t, err)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg := NewApplicationConfig()

	v := NewCommandConfig()
	cfg.ConfigureFlags(v, flags)

	err = flags.Parse([]string{"--config=" + configFile})
	require.NoError(t, err)

	loadedCfg, err := testLoadConfig(v, flags)
	require.NoError(t, err)

	assert.Equal(t, "file-name", loadedCfg.App.Name, "Config file should override default app name")
	assert.Equal(t, "2.0.0", loadedCfg.App.Version, "Config file should override default version")
	assert.Equal(t, 9999, loadedCfg.Metrics.Port, "Config file should override default metrics port")
}

// TestConfigPrecedence_FullPrecedenceChain tests the complete precedence chain:
// CLI > Env Var > Config File > Defaults
func TestConfigPrecedence_FullPrecedenceChain(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configYAML := `
app:
  name: file-name
  version: 2.0.0
schema:
  directory: file-schema
  base_iri: http://localhost/
  genid_base: http://localhost/.well-known/genid/
metrics:
  host: localhost
  port: 7070
database:
  dialect: postgres
  port: 5432
`
	err := os.WriteFile(configFile, []byte(configYAML), 0o644)
	require.NoError(t, err)

	os.Setenv("OLDMAN_APP_VERSION", "env-version")
	os.Setenv("OLDMAN_DATABASE_PORT", "6543")
	defer os.Unsetenv("OLDMAN_APP_VERSION")
	defer os.Unsetenv("OLDMAN_DATABASE_PORT")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg := NewApplicationConfig()

	v := NewCommandConfig()
	cfg.ConfigureFlags(v, flags)

	err = flags.Parse([]string{
		"--config=" + configFile,
		"--name=cli-name", // CLI overrides all
		"--metrics-port=9090", // CLI overrides all
	})
	require.NoError(t, err)

	loadedCfg, err := testLoadConfig(v, flags)
	require.NoError(t, err)

	assert.Equal(t, "cli-name", loadedCfg.App.Name, "CLI should have highest precedence")
	assert.Equal(t, "env-version", loadedCfg.App.Version, "Env var should override config file")
	assert.Equal(t, "file-schema", loadedCfg.Schema.Directory, "Config file should override default")
	assert.Equal(t, 6543, loadedCfg.Database.Port, "Env var should override config file")
	assert.Equal(t, 9090, loadedCfg.Metrics.Port, "CLI should override all")
}

// TestConfigFile_SpecifiedByFlag tests that config file can be specified via --config flag
func TestConfigFile_SpecifiedByFlag(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "custom-config.yaml")

	configYAML := `
app:
  name: custom-app
  version: 3.0.0
schema:
  directory: ./schema
  base_iri: http://localhost/
  genid_base: http://localhost/.well-known/genid/
metrics:
  host: localhost
  port: 8080
database:
  dialect: postgres
`
	err := os.WriteFile(configFile, []byte(configYAML), 0o644)
	require.NoError(t, err)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg := NewApplicationConfig()

	v := NewCommandConfig()
	cfg.ConfigureFlags(v, flags)

	err = flags.Parse([]string{"--config=" + configFile})
	require.NoError(t, err)

	loadedCfg, err := testLoadConfig(v, flags)
	require.NoError(t, err)

	assert.Equal(t, "custom-app", loadedCfg.App.Name)
	assert.Equal(t, "3.0.0", loadedCfg.App.Version)
}

// TestConfigFile_SpecifiedByEnvVar tests that config file can be specified via OLDMAN_CONFIG env var
func TestConfigFile_SpecifiedByEnvVar(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "env-config.yaml")

	configYAML := `
app:
  name: env-config-app
  version: 4.0.0
schema:
  directory: ./schema
  base_iri: http://localhost/
  genid_base: http://localhost/.well-known/genid/
metrics:
  host: localhost
  port: 8080
database:
  dialect: postgres
`
	err := os.WriteFile(configFile, []byte(configYAML), 0o644)
	require.NoError(t, err)

	os.Setenv("OLDMAN_CONFIG", configFile)
	defer os.Unsetenv("OLDMAN_CONFIG")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg := NewApplicationConfig()

	v := NewCommandConfig()
	cfg.ConfigureFlags(v, flags)

	err = flags.Parse([]string{})
	require.NoError(t, err)

	loadedCfg, err := testLoadConfig(v, flags)
	require.NoError(t, err)

	assert.Equal(t, "env-config-app", loadedCfg.App.Name)
	assert.Equal(t, "4.0.0", loadedCfg.App.Version)
}

// TestConfigFile_FlagOverridesEnvVar tests that --config flag takes precedence over OLDMAN_CONFIG env var
func TestConfigFile_FlagOverridesEnvVar(t *testing.T) {
	tmpDir := t.TempDir()

	envConfigFile := filepath.Join(tmpDir, "env-config.yaml")
	envConfigYAML := `
app:
  name: env-config
  version: 1.0.0
schema:
  directory: ./schema
  base_iri: http://localhost/
  genid_base: http://localhost/.well-known/genid/
metrics:
  host: localhost
  port: 8080
database:
  dialect: postgres
`
	err := os.WriteFile(envConfigFile, []byte(envConfigYAML), 0o644)
	require.NoError(t, err)

	flagConfigFile := filepath.Join(tmpDir, "flag-config.yaml")
	flagConfigYAML := `
app:
  name: flag-config
  version: 2.0.0
schema:
  directory: ./schema
  base_iri: http://localhost/
  genid_base: http://localhost/.well-known/genid/
metrics:
  host: localhost
  port: 8080
database:
  dialect: postgres
`
	err = os.WriteFile(flagConfigFile, []byte(flagConfigYAML), 0o644)
	require.NoError(t, err)

	os.Setenv("OLDMAN_CONFIG", envConfigFile)
	defer os.Unsetenv("OLDMAN_CONFIG")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg := NewApplicationConfig()

	v := NewCommandConfig()
	cfg.ConfigureFlags(v, flags)

	err = flags.Parse([]string{"--config=" + flagConfigFile})
	require.NoError(t, err)

	loadedCfg, err := testLoadConfig(v, flags)
	require.NoError(t, err)

	assert.Equal(t, "flag-config", loadedCfg.App.Name, "--config flag should override OLDMAN_CONFIG env var")
}

// TestConfigPrecedence_DatabasePassword tests password precedence specifically
func TestConfigPrecedence_DatabasePassword(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configYAML := `
app:
  name: test
  version: 1.0.0
schema:
  directory: ./schema
  base_iri: http://localhost/
  genid_base: http://localhost/.well-known/genid/
metrics:
  host: localhost
  port: 8080
database:
  dialect: postgres
  password: file-password
`
	err := os.WriteFile(configFile, []byte(configYAML), 0o644)
	require.NoError(t, err)

	os.Setenv("OLDMAN_DATABASE_PASSWORD", "env-password")
	defer os.Unsetenv("OLDMAN_DATABASE_PASSWORD")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg := NewApplicationConfig()

	v := NewCommandConfig()
	cfg.ConfigureFlags(v, flags)

	err = flags.Parse([]string{
		"--config=" + configFile,
		"--db-password=cli-password",
	})
	require.NoError(t, err)

	loadedCfg, err := testLoadConfig(v, flags)
	require.NoError(t, err)

	assert.Equal(t, "cli-password", loadedCfg.Database.Password, "CLI password should override env and file")
}
