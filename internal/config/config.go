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
	Server   ServerConfig   `mapstructure:"server"`   // 服务器配置
	Postgres PostgresConfig `mapstructure:"postgres"` // 主库配置
	MES      MESConfig      `mapstructure:"mes"`      // MES 事件源配置
	Excel    ExcelConfig    `mapstructure:"excel"`    // Excel 表格源配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// PostgresConfig 主库（KPI 数据仓）配置
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// MESConfig MES 事件源配置。Protocol 决定适配器实现：
// db = 直连 MES 库只读查询；rest = 经由 MES 网关的 HTTP 接口
type MESConfig struct {
	Protocol string `mapstructure:"protocol"` // 协议类型：db/rest
	DSN      string `mapstructure:"dsn"`      // db 模式：MES 库只读DSN
	BaseURL  string `mapstructure:"base_url"` // rest 模式：API基础地址
	Timeout  int    `mapstructure:"timeout"`  // rest 模式：请求超时（秒）
	Proxy    string `mapstructure:"proxy"`    // rest 模式：代理地址
}

// ExcelConfig 三个表格类数据源的文件路径
type ExcelConfig struct {
	PlanningFile  string `mapstructure:"planning_file"`  // 日生产计划
	LabDataFile   string `mapstructure:"lab_data_file"`  // 化验室抽检
	UtilitiesFile string `mapstructure:"utilities_file"` // 能源与原料消耗
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
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if v := os.Getenv("MES_DSN"); v != "" {
		cfg.MES.DSN = v
	}
	if v := os.Getenv("MES_BASE_URL"); v != "" {
		cfg.MES.BaseURL = v
	}
	if v := os.Getenv("MES_PROXY"); v != "" {
		cfg.MES.Proxy = v
	}
}
