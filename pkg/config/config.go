// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	MCP     MCPConfig     `mapstructure:"mcp"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Storage StorageConfig `mapstructure:"storage"`
	Log     LogConfig     `mapstructure:"log"`
}

// ModelConfig 模型端点配置（OpenAI 兼容，如 DeepSeek）
type ModelConfig struct {
	Provider    string  `mapstructure:"provider"`    // openai | deepseek（均走 OpenAI 兼容协议）
	Name        string  `mapstructure:"name"`        // 如 deepseek-chat
	APIKey      string  `mapstructure:"api_key"`     // 支持 ${ENV_VAR} 占位
	BaseURL     string  `mapstructure:"base_url"`    // 如 https://api.deepseek.com/v1
	Timeout     string  `mapstructure:"timeout"`     // 单次调用超时，如 "60s"，空则默认 60s
	Temperature float64 `mapstructure:"temperature"` // 默认 0
	MaxTokens   int     `mapstructure:"max_tokens"`  // <=0 使用默认 2048

	RateLimit ModelRateLimitConfig `mapstructure:"rate_limit"`
}

// ModelRateLimitConfig 模型调用限流配置
type ModelRateLimitConfig struct {
	RequestsPerMinute float64 `mapstructure:"requests_per_minute"` // <=0 不限流
	MaxConcurrent     int     `mapstructure:"max_concurrent"`      // <=0 不限并发
}

// MCPConfig 工具服务（MCP SSE）配置
type MCPConfig struct {
	Servers     []string `mapstructure:"servers"`      // SSE 服务地址列表；命令行位置参数优先
	CallTimeout string   `mapstructure:"call_timeout"` // 单次工具调用超时，如 "30s"，空则默认 30s
}

// AgentConfig Agent 回路配置
type AgentConfig struct {
	Chat   ChatConfig   `mapstructure:"chat"`
	Plan   PlanConfig   `mapstructure:"plan"`
	Intent IntentConfig `mapstructure:"intent"`
}

// ChatConfig 工具调用回路配置
type ChatConfig struct {
	MaxTurns int `mapstructure:"max_turns"` // 模型/工具往返上限，<=0 使用默认 8
}

// PlanConfig 计划状态机配置
type PlanConfig struct {
	MaxRepairAttempts int `mapstructure:"max_repair_attempts"` // JSON 修复重试上限；0 表示不设上限（沿用原始行为）；未配置默认 5
}

// IntentConfig 意图路由图配置
type IntentConfig struct {
	ClarificationLimit int `mapstructure:"clarification_limit"` // 澄清轮次上限，<=0 使用默认 3
	MaxRunSteps        int `mapstructure:"max_run_steps"`       // 图执行步数上限（防环），<=0 使用默认 32
}

// StorageConfig 存储配置（仅数据导入工具使用，核心回路不直连）
type StorageConfig struct {
	Metadata MetadataConfig `mapstructure:"metadata"`
}

// MetadataConfig 产品目录库配置
type MetadataConfig struct {
	DSN   string `mapstructure:"dsn"`   // Postgres 连接串，支持 ${ENV_VAR}
	Table string `mapstructure:"table"` // 默认 products
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)
	return &config, nil
}

// Load 加载默认路径配置；文件不存在时回退 DefaultConfig（API Key 仍从环境变量取）
func Load() (*Config, error) {
	const path = "configs/config.yaml"
	if _, err := os.Stat(path); err != nil {
		cfg := DefaultConfig()
		replaceEnvVars(cfg)
		return cfg, nil
	}
	return LoadConfig(path)
}

// DefaultConfig 无配置文件时的默认配置（对接 DeepSeek 兼容端点）
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider: "deepseek",
			Name:     "deepseek-chat",
			APIKey:   "${DEEPSEEK_API_KEY}",
			BaseURL:  "https://api.deepseek.com/v1",
			Timeout:  "60s",
		},
		MCP: MCPConfig{CallTimeout: "30s"},
		Agent: AgentConfig{
			Chat:   ChatConfig{MaxTurns: 8},
			Plan:   PlanConfig{MaxRepairAttempts: 5},
			Intent: IntentConfig{ClarificationLimit: 3, MaxRunSteps: 32},
		},
		Storage: StorageConfig{Metadata: MetadataConfig{Table: "products"}},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// ModelTimeout 解析模型调用超时
func (c *Config) ModelTimeout() time.Duration {
	return parseDuration(c.Model.Timeout, 60*time.Second)
}

// MCPCallTimeout 解析工具调用超时
func (c *Config) MCPCallTimeout() time.Duration {
	return parseDuration(c.MCP.CallTimeout, 30*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// replaceEnvVars 替换 ${ENV_VAR} 占位（API Key 与 DSN）
func replaceEnvVars(config *Config) {
	config.Model.APIKey = expandEnv(config.Model.APIKey)
	config.Storage.Metadata.DSN = expandEnv(config.Storage.Metadata.DSN)
}

var envPlaceholderRe = regexp.MustCompile(`\$\{(\w+)\}`)

// expandEnv 展开字符串中任意位置的 ${VAR} 占位（DSN 中常见内嵌密码）。
// 环境变量未设置时保留占位原文，便于上层报出可读错误。
func expandEnv(s string) string {
	return envPlaceholderRe.ReplaceAllStringFunc(s, func(m string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(m, "${"), "}")
		if val := os.Getenv(name); val != "" {
			return val
		}
		return m
	})
}
