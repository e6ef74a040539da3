package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults 测试无配置文件时的默认值
func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg := Load()

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "8000", cfg.APIPort)
	assert.Equal(t, "service", cfg.Crawler.Mode)
	assert.Equal(t, "http://localhost:11235", cfg.Crawler.ServiceURL)
	assert.Equal(t, "pocketbase", cfg.Store.Driver)
	assert.Equal(t, "pocketbase", cfg.Media.Backend)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
}

// TestLoadYAMLOverride 测试 YAML 配置覆盖默认值
func TestLoadYAMLOverride(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, "dev.yaml", `
server:
  port: "9000"
crawler:
  mode: direct
store:
  driver: sqlite
  sqlite_path: /tmp/tasks.db
pipeline:
  workers: 8
`)

	cfg := Load()

	assert.Equal(t, "9000", cfg.APIPort)
	assert.Equal(t, "direct", cfg.Crawler.Mode)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/tasks.db", cfg.Store.SQLitePath)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
}

// TestLoadEnvOverridesYAML 测试环境变量覆盖 YAML
func TestLoadEnvOverridesYAML(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, "dev.yaml", `
llm:
  base_url: https://yaml.example.com/v1
`)
	t.Setenv("LLM_BASE_URL", "https://env.example.com/v1/")
	t.Setenv("LLM_API_KEY", "sk-test")

	cfg := Load()

	// 环境变量优先，且尾部斜杠被修剪
	assert.Equal(t, "https://env.example.com/v1", cfg.LLM.BaseURL)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
}

// TestLoadAppEnv 测试 APP_ENV 切换环境
func TestLoadAppEnv(t *testing.T) {
	dir := chdirTemp(t)
	writeConfig(t, dir, "test.yaml", `
server:
  port: "18000"
`)
	t.Setenv("APP_ENV", "test")

	cfg := Load()

	assert.Equal(t, EnvTest, cfg.Env)
	assert.True(t, cfg.IsTest())
	assert.Equal(t, "18000", cfg.APIPort)
}

// TestConfigStringHidesSecrets 测试配置摘要不泄露敏感信息
func TestConfigStringHidesSecrets(t *testing.T) {
	chdirTemp(t)
	t.Setenv("LLM_API_KEY", "sk-secret-value")
	t.Setenv("POCKETBASE_ADMIN_PASSWORD", "hunter2")

	cfg := Load()
	s := cfg.String()

	assert.NotContains(t, s, "sk-secret-value")
	assert.NotContains(t, s, "hunter2")
}

// chdirTemp 切换到空临时目录，避免读取仓库里的配置文件
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

// writeConfig 在临时目录下写入配置文件
func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "configs")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, name), []byte(content), 0o644))
}
