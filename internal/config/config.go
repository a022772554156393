// 包 config：集中读取 .env、可选配置文件与环境变量，生成强类型配置
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"reverse-geo/internal/revgeo"
)

type Index struct {
	NodeCapacity int `mapstructure:"node_capacity"`
}

type Batch struct {
	Max     int `mapstructure:"max"`
	Workers int `mapstructure:"workers"`
}

type Fallback struct {
	Enable   bool    `mapstructure:"enable"`
	RadiusKm float64 `mapstructure:"radius_km"`
}

type Cache struct {
	Size        int `mapstructure:"size"`
	TTLSeconds  int `mapstructure:"ttl_s"`
	GeohashPrec int `mapstructure:"geohash_prec"`
}

type Redis struct {
	Enable     bool   `mapstructure:"enable"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	Pass       string `mapstructure:"pass"`
	DB         int    `mapstructure:"db"`
	TTLSeconds int    `mapstructure:"ttl_s"`
}

type Postgres struct {
	Enable       bool   `mapstructure:"enable"`
	Host         string `mapstructure:"host"`
	Port         string `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	DB           string `mapstructure:"db"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN 拼接 lib/pq 连接串
func (p Postgres) DSN() string {
	dsn := "postgres://" + p.User
	if p.Password != "" {
		dsn += ":" + p.Password
	}
	return dsn + "@" + p.Host + ":" + p.Port + "/" + p.DB + "?sslmode=" + p.SSLMode
}

type RateLimit struct {
	Enabled bool    `mapstructure:"enabled"`
	QPS     float64 `mapstructure:"qps"`
	Burst   int     `mapstructure:"burst"`
}

type TLS struct {
	Enable   bool   `mapstructure:"enable"`
	CertPath string `mapstructure:"cert_path"`
	KeyPath  string `mapstructure:"key_path"`
	// Hosts 自签名证书的附加主机名/IP，逗号分隔
	Hosts string `mapstructure:"hosts"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// 文档注释：进程配置
// 背景：键名按 "段.字段" 组织，对应环境变量为大写下划线形式（batch.max -> BATCH_MAX），与既有部署脚本保持一致。
// 约束：优先级为 环境变量 > 配置文件 > 默认值；.env 只在变量未设置时生效。
type Config struct {
	Addr        string `mapstructure:"addr"`
	APIBase     string `mapstructure:"api_base"`
	DataDir     string `mapstructure:"data_dir"`
	StreetsCSV  string `mapstructure:"streets_csv"`
	GeoJSONDir  string `mapstructure:"geojson_dir"`
	AdminSource string `mapstructure:"admin_source"`
	Boundary    string `mapstructure:"boundary_rule"`
	GeoIPPath   string `mapstructure:"geoip_path"`
	CORSOrigins string `mapstructure:"cors_origins"`

	Index     Index     `mapstructure:"index"`
	Batch     Batch     `mapstructure:"batch"`
	Fallback  Fallback  `mapstructure:"fallback"`
	Cache     Cache     `mapstructure:"cache"`
	Redis     Redis     `mapstructure:"redis"`
	PG        Postgres  `mapstructure:"pg"`
	RateLimit RateLimit `mapstructure:"rate_limit"`
	TLS       TLS       `mapstructure:"tls"`
	Log       Log       `mapstructure:"log"`
}

var defaults = map[string]any{
	"addr":                ":8080",
	"api_base":            "/api",
	"data_dir":            "data",
	"streets_csv":         "",
	"geojson_dir":         "",
	"admin_source":        "files",
	"boundary_rule":       "inclusive",
	"geoip_path":          "",
	"cors_origins":        "*",
	"index.node_capacity": revgeo.DefaultNodeCapacity,
	"batch.max":           revgeo.DefaultBatchMax,
	"batch.workers":       0,
	"fallback.enable":     false,
	"fallback.radius_km":  5.0,
	"cache.size":          10000,
	"cache.ttl_s":         3600,
	"cache.geohash_prec":  12,
	"redis.enable":        false,
	"redis.host":          "127.0.0.1",
	"redis.port":          "6379",
	"redis.pass":          "",
	"redis.db":            0,
	"redis.ttl_s":         3600,
	"pg.enable":           false,
	"pg.host":             "localhost",
	"pg.port":             "5432",
	"pg.user":             "postgres",
	"pg.password":         "",
	"pg.db":               "revgeo",
	"pg.sslmode":          "disable",
	"pg.max_open_conns":   50,
	"pg.max_idle_conns":   25,
	"rate_limit.enabled":  false,
	"rate_limit.qps":      200.0,
	"rate_limit.burst":    0,
	"tls.enable":          false,
	"tls.cert_path":       "",
	"tls.key_path":        "",
	"tls.hosts":           "",
	"log.level":           "info",
	"log.format":          "text",
}

// Load 读取 .env（可多个，缺失忽略）、REVGEO_CONFIG 指向的配置文件与环境变量
func Load(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if p := os.Getenv("REVGEO_CONFIG"); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", p, err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) normalize() {
	if c.StreetsCSV == "" && c.GeoJSONDir == "" {
		c.StreetsCSV = filepath.Join(c.DataDir, "streets.csv")
	}
	if !strings.HasPrefix(c.APIBase, "/") {
		c.APIBase = "/" + c.APIBase
	}
	c.APIBase = strings.TrimRight(c.APIBase, "/")
	if c.TLS.CertPath == "" {
		c.TLS.CertPath = filepath.Join(c.DataDir, "certs", "server.crt")
	}
	if c.TLS.KeyPath == "" {
		c.TLS.KeyPath = filepath.Join(c.DataDir, "certs", "server.key")
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = int(c.RateLimit.QPS)
	}
}

// Validate 校验枚举与取值范围
func (c *Config) Validate() error {
	var errs []error
	if _, err := revgeo.ParseBoundaryRule(c.Boundary); err != nil {
		errs = append(errs, err)
	}
	switch c.AdminSource {
	case "files", "postgres":
	default:
		errs = append(errs, fmt.Errorf("config: admin_source must be files or postgres, got %q", c.AdminSource))
	}
	if c.AdminSource == "postgres" && !c.PG.Enable {
		errs = append(errs, errors.New("config: admin_source=postgres requires PG_ENABLE=true"))
	}
	if c.Batch.Max <= 0 {
		errs = append(errs, fmt.Errorf("config: batch.max must be positive, got %d", c.Batch.Max))
	}
	if c.Fallback.RadiusKm < 0 {
		errs = append(errs, fmt.Errorf("config: fallback.radius_km must not be negative"))
	}
	if c.Cache.GeohashPrec < 1 || c.Cache.GeohashPrec > 12 {
		errs = append(errs, fmt.Errorf("config: cache.geohash_prec must be within [1,12], got %d", c.Cache.GeohashPrec))
	}
	if c.RateLimit.Enabled && c.RateLimit.QPS <= 0 {
		errs = append(errs, errors.New("config: rate_limit.qps must be positive"))
	}
	return errors.Join(errs...)
}

// BoundaryRule 已校验的边界规则
func (c *Config) BoundaryRule() revgeo.BoundaryRule {
	r, _ := revgeo.ParseBoundaryRule(c.Boundary)
	return r
}

func (c *Config) CacheTTL() time.Duration { return time.Duration(c.Cache.TTLSeconds) * time.Second }

func (c *Config) RedisTTL() time.Duration { return time.Duration(c.Redis.TTLSeconds) * time.Second }

// RedisAddr host:port
func (c *Config) RedisAddr() string { return c.Redis.Host + ":" + c.Redis.Port }

// Origins CORS 允许来源列表，逗号分隔
func (c *Config) Origins() []string { return splitList(c.CORSOrigins) }

// TLSHosts 自签名证书主机列表
func (c *Config) TLSHosts() []string { return splitList(c.TLS.Hosts) }

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IndexOptions/ResolverOptions/BatchOptions/LocatorOptions 转换为核心包选项
func (c *Config) IndexOptions() revgeo.IndexOptions {
	return revgeo.IndexOptions{NodeCapacity: c.Index.NodeCapacity}
}

func (c *Config) ResolverOptions() revgeo.ResolverOptions {
	return revgeo.ResolverOptions{Boundary: c.BoundaryRule()}
}

func (c *Config) BatchOptions() revgeo.BatchOptions {
	return revgeo.BatchOptions{Max: c.Batch.Max, Workers: c.Batch.Workers}
}

func (c *Config) LocatorOptions() revgeo.LocatorOptions {
	return revgeo.LocatorOptions{
		Fallback:         c.Fallback.Enable,
		FallbackRadiusKm: c.Fallback.RadiusKm,
		CacheSize:        c.Cache.Size,
		CacheTTL:         c.CacheTTL(),
		GeohashPrecision: uint(c.Cache.GeohashPrec),
	}
}
