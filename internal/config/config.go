package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server    ServerConfig              `mapstructure:"server"`    // 服务器配置
	Database  DatabaseConfig            `mapstructure:"database"`  // PostgreSQL配置
	Sync      SyncConfig                `mapstructure:"sync"`      // 对账/同步配置
	Platforms map[string]PlatformConfig `mapstructure:"platforms"` // 多平台独立配置
	Rates     RatesConfig               `mapstructure:"rates"`     // 汇率服务配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// DatabaseConfig PostgreSQL数据库配置
// MaxOpenConns 必须不小于 Sync.ShardCount，否则并发分片会互相等连接
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// SyncConfig 对账/同步配置
type SyncConfig struct {
	EnabledPlatforms     []string `mapstructure:"enabled_platforms"`      // 启用的平台列表
	ShardCount           int      `mapstructure:"shard_count"`            // 批量对账分片数
	PreviousDays         int      `mapstructure:"previous_days"`          // 拉取订单的回溯天数
	ProductNameOverwrite bool     `mapstructure:"product_name_overwrite"` // 订单/offer同步是否覆盖商品名
}

// PlatformConfig 单个平台的独立配置
type PlatformConfig struct {
	BaseURL      string  `mapstructure:"base_url"`      // API基础地址
	Timeout      int     `mapstructure:"timeout"`       // 请求超时（秒）
	RetryCount   int     `mapstructure:"retry_count"`   // 重试次数
	RateLimit    float64 `mapstructure:"rate_limit"`    // 每秒请求上限（0为不限）
	PageLimit    int     `mapstructure:"page_limit"`    // 单页拉取条数
	Token        string  `mapstructure:"token"`         // 通用认证Token（Baselinker X-BLToken / Apilo accessToken）
	RefreshToken string  `mapstructure:"refresh_token"` // Apilo刷新Token
	ClientID     string  `mapstructure:"client_id"`     // Apilo client id
	ClientSecret string  `mapstructure:"client_secret"` // Apilo client secret
	AuthCode     string  `mapstructure:"auth_code"`     // Apilo授权码（首次换token用）
	InventoryID  int     `mapstructure:"inventory_id"`  // Baselinker库存目录ID
	Proxy        string  `mapstructure:"proxy"`         // 代理地址
}

// RatesConfig 汇率服务配置（NBP 表A）
type RatesConfig struct {
	BaseURL    string   `mapstructure:"base_url"`   // 如 https://api.nbp.pl/api
	Currencies []string `mapstructure:"currencies"` // 需要转PLN的币种，如 CZK,EUR,HUF,RON
	Timeout    int      `mapstructure:"timeout"`    // 请求超时（秒）
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)

	if cfg.Sync.ShardCount <= 0 {
		cfg.Sync.ShardCount = 1
	}
	// 连接池小于分片数会饿死并发分片，直接抬高
	if cfg.Database.MaxOpenConns < cfg.Sync.ShardCount {
		cfg.Database.MaxOpenConns = cfg.Sync.ShardCount
	}
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if a, ok := cfg.Platforms["apilo"]; ok {
		if v := os.Getenv("APILO_TOKEN"); v != "" {
			a.Token = v
		}
		if v := os.Getenv("APILO_REFRESH_TOKEN"); v != "" {
			a.RefreshToken = v
		}
		if v := os.Getenv("APILO_CLIENT_ID"); v != "" {
			a.ClientID = v
		}
		if v := os.Getenv("APILO_CLIENT_SECRET"); v != "" {
			a.ClientSecret = v
		}
		cfg.Platforms["apilo"] = a
	}
	if b, ok := cfg.Platforms["baselinker"]; ok {
		if v := os.Getenv("BASELINKER_TOKEN"); v != "" {
			b.Token = v
		}
		cfg.Platforms["baselinker"] = b
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
}
