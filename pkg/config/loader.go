// Package config 负责加载和校验配置
package config

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
	"github.com/spf13/viper"

	"github.com/glesirok/apicmd/pkg/hierarchy"
	"github.com/glesirok/apicmd/pkg/infer"
)

const (
	// DefaultPrefix 是默认的 API 根路径
	DefaultPrefix = "/api/atlas/v2/"
	// EnvPrefix 是环境变量前缀，例如 APICMD_PREFIX
	EnvPrefix = "APICMD"
)

// Config 表示配置文件
type Config struct {
	Prefix           string   `mapstructure:"prefix" yaml:"prefix"`
	SeedVerbs        []string `mapstructure:"seed_verbs" yaml:"seed_verbs"`
	IgnoreOperations []string `mapstructure:"ignore_operations" yaml:"ignore_operations,omitempty"`
	Validate         bool     `mapstructure:"validate" yaml:"validate"` // 是否校验 OpenAPI 文档
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Prefix:    DefaultPrefix,
		SeedVerbs: append([]string(nil), infer.DefaultSeedVerbs...),
		Validate:  true,
	}
}

// Load 加载配置，filePath 为空时只使用默认值和环境变量
func Load(filePath string) (*Config, error) {
	return LoadWith(viper.New(), filePath)
}

// LoadWith 使用给定的 viper 实例加载，调用方可以事先绑定命令行参数
func LoadWith(v *viper.Viper, filePath string) (*Config, error) {
	defaults := Default()
	v.SetDefault("prefix", defaults.Prefix)
	v.SetDefault("seed_verbs", defaults.SeedVerbs)
	v.SetDefault("ignore_operations", []string{})
	v.SetDefault("validate", defaults.Validate)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", filePath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验配置的合法性
func Validate(cfg *Config) error {
	if cfg.Prefix == "" {
		return fmt.Errorf("prefix is required")
	}
	if !strings.HasPrefix(cfg.Prefix, "/") {
		return fmt.Errorf("prefix must start with '/': %s", cfg.Prefix)
	}

	if len(cfg.SeedVerbs) == 0 {
		return fmt.Errorf("seed_verbs cannot be empty")
	}
	for i, verb := range cfg.SeedVerbs {
		if strings.TrimSpace(verb) == "" {
			return fmt.Errorf("seed_verbs[%d] cannot be empty", i)
		}
	}

	for i, pattern := range cfg.IgnoreOperations {
		if pattern == "" {
			return fmt.Errorf("ignore_operations[%d] cannot be empty", i)
		}
		// 校验正则合法性
		if _, err := regexp2.Compile(pattern, 0); err != nil {
			return fmt.Errorf("ignore_operations[%d]: invalid regex pattern: %w", i, err)
		}
	}

	return nil
}

// BuildOptions 把配置转换成构建参数
func (c *Config) BuildOptions() hierarchy.Options {
	return hierarchy.Options{
		Prefix:         c.Prefix,
		SeedVerbs:      c.SeedVerbs,
		IgnorePatterns: c.IgnoreOperations,
	}
}
