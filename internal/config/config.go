// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（LLM 密钥、存储后端口令）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 凭据单一数据源：密码/密钥只存在 .env 中（YAML 字段标记 yaml:"-"）。
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

// CrawlerConfig 内容抓取配置
//
// Mode 选择后端：
//   - service: 调用 crawl4ai 兼容服务（默认）
//   - direct:  进程内直接抓取并转换为 Markdown
type CrawlerConfig struct {
	Mode       string `yaml:"mode"`
	ServiceURL string `yaml:"service_url"`
}

// LLMConfig 生成式后端配置（OpenAI 兼容接口）
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"-"` // 只从 LLM_API_KEY 环境变量读取
	Model   string `yaml:"model"`
}

// StoreConfig 任务存储配置
//
// Driver 选择后端：
//   - pocketbase: 远端记录服务，token 认证（默认）
//   - sqlite:     本地 SQLite 文件
//   - postgres:   PostgreSQL
type StoreConfig struct {
	Driver        string `yaml:"driver"`
	PocketBaseURL string `yaml:"pocketbase_url"`
	AdminEmail    string `yaml:"-"` // 只从 POCKETBASE_ADMIN_EMAIL 环境变量读取
	AdminPassword string `yaml:"-"` // 只从 POCKETBASE_ADMIN_PASSWORD 环境变量读取
	SQLitePath    string `yaml:"sqlite_path"`
	PostgresURL   string `yaml:"-"` // 只从 DATABASE_URL 环境变量读取
}

// MediaConfig 媒体存储配置
//
// Backend 选择后端：
//   - pocketbase: 与任务存储共用的记录服务（默认）
//   - minio:      MinIO 对象存储
type MediaConfig struct {
	Backend string      `yaml:"backend"`
	MinIO   MinIOConfig `yaml:"minio"`
}

// MinIOConfig MinIO 对象存储配置
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"-"` // 只从 MINIO_ROOT_USER 环境变量读取
	SecretKey string `yaml:"-"` // 只从 MINIO_ROOT_PASSWORD 环境变量读取
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
	PublicURL string `yaml:"public_url"` // 对外可访问的基础 URL（默认由 endpoint 推导）
}

// PipelineConfig 流水线配置
type PipelineConfig struct {
	Workers int `yaml:"workers"` // 后台工作协程数
}

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Crawler  CrawlerConfig  `yaml:"crawler"`
	LLM      LLMConfig      `yaml:"llm"`
	Store    StoreConfig    `yaml:"store"`
	Media    MediaConfig    `yaml:"media"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env      Environment
	APIPort  string
	Crawler  CrawlerConfig
	LLM      LLMConfig
	Store    StoreConfig
	Media    MediaConfig
	Pipeline PipelineConfig
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 环境变量覆盖后构建最终配置
func Load() *Config {
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	env := parseEnv(getEnv("APP_ENV", "dev"))
	yamlCfg := loadYAMLConfig(env)

	cfg := &Config{
		Env:      env,
		APIPort:  getEnv("API_PORT", yamlCfg.Server.Port),
		Crawler:  yamlCfg.Crawler,
		LLM:      yamlCfg.LLM,
		Store:    yamlCfg.Store,
		Media:    yamlCfg.Media,
		Pipeline: yamlCfg.Pipeline,
	}

	// 非敏感字段的环境变量覆盖
	cfg.Crawler.Mode = getEnv("CRAWLER_MODE", cfg.Crawler.Mode)
	cfg.Crawler.ServiceURL = getEnv("CRAWL4AI_URL", cfg.Crawler.ServiceURL)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = getEnv("LLM_MODEL_NAME", cfg.LLM.Model)
	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.PocketBaseURL = getEnv("POCKETBASE_URL", cfg.Store.PocketBaseURL)
	cfg.Media.Backend = getEnv("MEDIA_BACKEND", cfg.Media.Backend)
	cfg.Media.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", cfg.Media.MinIO.Endpoint)

	// 敏感信息只从环境变量读取
	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	cfg.Store.AdminEmail = os.Getenv("POCKETBASE_ADMIN_EMAIL")
	cfg.Store.AdminPassword = os.Getenv("POCKETBASE_ADMIN_PASSWORD")
	cfg.Store.PostgresURL = os.Getenv("DATABASE_URL")
	cfg.Media.MinIO.AccessKey = os.Getenv("MINIO_ROOT_USER")
	cfg.Media.MinIO.SecretKey = os.Getenv("MINIO_ROOT_PASSWORD")

	cfg.normalize()
	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	cfg := &YAMLConfig{
		Server:  ServerConfig{Port: "8000"},
		Crawler: CrawlerConfig{Mode: "service", ServiceURL: "http://localhost:11235"},
		LLM:     LLMConfig{BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
		Store: StoreConfig{
			Driver:        "pocketbase",
			PocketBaseURL: "http://localhost:8090",
			SQLitePath:    "data/tasks.db",
		},
		Media:    MediaConfig{Backend: "pocketbase", MinIO: MinIOConfig{Bucket: "article-media"}},
		Pipeline: PipelineConfig{Workers: 4},
	}

	for _, base := range configPaths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

// normalize 填充缺省值并修剪尾部斜杠
func (c *Config) normalize() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}
	if c.Crawler.Mode == "" {
		c.Crawler.Mode = "service"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "pocketbase"
	}
	if c.Media.Backend == "" {
		c.Media.Backend = "pocketbase"
	}
	c.Store.PocketBaseURL = strings.TrimRight(c.Store.PocketBaseURL, "/")
	c.Crawler.ServiceURL = strings.TrimRight(c.Crawler.ServiceURL, "/")
	c.LLM.BaseURL = strings.TrimRight(c.LLM.BaseURL, "/")
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（不含任何敏感信息）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Port: %s, Crawler: %s, LLM: %s/%s, Store: %s, Media: %s}",
		c.Env, c.APIPort, c.Crawler.Mode, c.LLM.BaseURL, c.LLM.Model, c.Store.Driver, c.Media.Backend)
}
