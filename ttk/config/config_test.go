package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	internal "github.com/tabletalkhq/tabletalk/ttk"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	tempDir, err := os.MkdirTemp("", "tabletalk-config-test-*")
	require.NoError(suite.T(), err)
	suite.tempDir = tempDir

	err = os.Chdir(tempDir)
	require.NoError(suite.T(), err)
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}

	if suite.tempDir != "" {
		os.RemoveAll(suite.tempDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), internal.DefaultTimezone, cfg.Engine.Timezone)
	assert.Equal(suite.T(), time.Minute, cfg.Engine.GraceBuffer)
	assert.Equal(suite.T(), internal.DefaultDatabaseDSN, cfg.Database.DSN)
	assert.Equal(suite.T(), "WAL", cfg.Database.JournalMode)

	assert.Equal(suite.T(), 10*time.Minute, cfg.Menu.Freshness)
	assert.Equal(suite.T(), 5, cfg.Menu.MinItems)
	assert.Equal(suite.T(), 500, cfg.Menu.MaxItems)
	assert.Equal(suite.T(), 3, cfg.Menu.RetryAttempts)

	assert.Equal(suite.T(), internal.DefaultAreaCode, cfg.Extract.DefaultAreaCode)
	assert.Equal(suite.T(), 20, cfg.Extract.MaxPartySize)

	assert.Equal(suite.T(), internal.DefaultCurrency, cfg.Payment.Currency)
	assert.Equal(suite.T(), "memory", cfg.Session.Backend)
	assert.Equal(suite.T(), 30*time.Minute, cfg.Session.TTL)
	assert.True(suite.T(), cfg.Notify.Enabled)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
engine:
  timezone: "America/Chicago"
  grace_buffer: "90s"
database:
  dsn: "file:test.db"
menu:
  freshness: "5m"
  min_items: 10
session:
  backend: "redis"
  redis_addr: "redis:6379"
`

	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte(configContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), "America/Chicago", cfg.Engine.Timezone)
	assert.Equal(suite.T(), 90*time.Second, cfg.Engine.GraceBuffer)
	assert.Equal(suite.T(), "file:test.db", cfg.Database.DSN)
	assert.Equal(suite.T(), 5*time.Minute, cfg.Menu.Freshness)
	assert.Equal(suite.T(), 10, cfg.Menu.MinItems)
	assert.Equal(suite.T(), "redis", cfg.Session.Backend)
	assert.Equal(suite.T(), "redis:6379", cfg.Session.RedisAddr)

	// Keys absent from the file keep their defaults
	assert.Equal(suite.T(), 500, cfg.Menu.MaxItems)
	assert.Equal(suite.T(), internal.DefaultCurrency, cfg.Payment.Currency)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigMalformedFile() {
	malformedContent := `
engine:
  timezone: "America/New_York"
  invalid_yaml: [unclosed bracket
`

	configFile := filepath.Join(suite.tempDir, "malformed.yaml")
	err := os.WriteFile(configFile, []byte(malformedContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestAppConfigGlobal() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), cfg.Engine.Timezone, AppConfig.Engine.Timezone)
}

// TestConfigTypes tests the configuration type definitions
func TestConfigTypes(t *testing.T) {
	config := Config{}

	assert.IsType(t, EngineConfig{}, config.Engine)
	assert.IsType(t, DatabaseConfig{}, config.Database)
	assert.IsType(t, MenuConfig{}, config.Menu)
	assert.IsType(t, PaymentConfig{}, config.Payment)

	dbConfig := DatabaseConfig{}
	assert.IsType(t, "", dbConfig.DSN)
	assert.IsType(t, 0, dbConfig.MaxOpenConns)
}

// BenchmarkLoadConfig benchmarks config loading performance
func BenchmarkLoadConfig(b *testing.B) {
	for b.Loop() {
		cfg, err := LoadConfig("")
		if err != nil {
			b.Fatal(err)
		}
		_ = cfg
	}
}
