package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/glebarez/sqlite"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
	BackendBadger = "badger"
)

type Config struct {
	API      APIConfig      `yaml:"api"`
	Clan     ClanConfig     `yaml:"clan"`
	Cache    CacheConfig    `yaml:"cache"`
	Report   ReportConfig   `yaml:"report"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
}

type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Key       string        `yaml:"key"`
	Timeout   time.Duration `yaml:"timeout"`
	PageSize  int           `yaml:"page_size"`
	MaxPages  int           `yaml:"max_pages"`
	PageDelay time.Duration `yaml:"page_delay"`
}

type ClanConfig struct {
	Tag string `yaml:"tag"`
}

type CacheConfig struct {
	Backend string        `yaml:"backend"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl"`
}

type ReportConfig struct {
	TemplatesDir string   `yaml:"templates_dir"`
	OutputDir    string   `yaml:"output_dir"`
	Pages        []string `yaml:"pages"`
	TopPlayers   int      `yaml:"top_players"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	Console    bool   `yaml:"console"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// envOverrides lists every variable that may replace a file value.
// Empty / zero fields leave the file value alone.
type envOverrides struct {
	APIKey       string        `envconfig:"CR_API_KEY"`
	APIKeyAlt    string        `envconfig:"CLASH_ROYALE_API_KEY"`
	BaseURL      string        `envconfig:"CR_API_BASE_URL"`
	ClanTag      string        `envconfig:"CLAN_TAG"`
	DataDir      string        `envconfig:"DATA_DIR"`
	TemplatesDir string        `envconfig:"TEMPLATES_DIR"`
	OutputDir    string        `envconfig:"OUTPUT_DIR"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL"`
	CacheBackend string        `envconfig:"CACHE_BACKEND"`
	LogLevel     string        `envconfig:"LOG_LEVEL"`
	LogFile      string        `envconfig:"LOG_FILE"`
	Port         int           `envconfig:"PORT"`
	DBHost       string        `envconfig:"DB_HOST"`
	DBPort       int           `envconfig:"DB_PORT"`
	DBUser       string        `envconfig:"DB_USER"`
	DBPass       string        `envconfig:"DB_PASS"`
	DBName       string        `envconfig:"DB_NAME"`
}

var DefaultPages = []string{"index.html", "audit.html", "war_history.html", "members_stats.html", "ranking.html"}

func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:   "https://api.clashroyale.com/v1",
			Timeout:   30 * time.Second,
			PageSize:  10,
			MaxPages:  20,
			PageDelay: 500 * time.Millisecond,
		},
		Clan:     ClanConfig{Tag: "#9PJRJRPC"},
		Cache:    CacheConfig{Backend: BackendFile, Dir: "data", TTL: 10 * time.Minute},
		Report:   ReportConfig{OutputDir: ".", Pages: slices.Clone(DefaultPages), TopPlayers: 3},
		Server:   ServerConfig{Port: 9871},
		Log:      LogConfig{Level: "info", Format: "json", Console: true, MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 30},
		Database: DatabaseConfig{Port: 3306, Name: "royale_audit"},
	}
}

// Load reads the first config file found, then applies environment overrides.
// A missing file is not an error; a malformed one is.
func Load(configFile string) (*Config, error) {
	c := Default()

	paths := []string{"etc/royale-audit.yaml", "/etc/royale-audit/config.yaml"}
	if configFile != "" {
		paths = []string{configFile}
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			if configFile != "" {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			continue
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		break
	}

	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	c.applyEnv(env)

	if len(c.Report.Pages) == 0 {
		c.Report.Pages = slices.Clone(DefaultPages)
	}
	return c, nil
}

func (c *Config) applyEnv(env envOverrides) {
	override(&c.API.Key, env.APIKeyAlt)
	override(&c.API.Key, env.APIKey)
	override(&c.API.BaseURL, env.BaseURL)
	override(&c.Clan.Tag, env.ClanTag)
	override(&c.Cache.Dir, env.DataDir)
	override(&c.Cache.Backend, env.CacheBackend)
	override(&c.Report.TemplatesDir, env.TemplatesDir)
	override(&c.Report.OutputDir, env.OutputDir)
	override(&c.Log.Level, env.LogLevel)
	override(&c.Log.File, env.LogFile)
	override(&c.Database.Host, env.DBHost)
	override(&c.Database.User, env.DBUser)
	override(&c.Database.Password, env.DBPass)
	override(&c.Database.Name, env.DBName)
	overrideNonZero(&c.Cache.TTL, env.CacheTTL)
	overrideNonZero(&c.Server.Port, env.Port)
	overrideNonZero(&c.Database.Port, env.DBPort)
}

var (
	ErrMissingAPIKey  = errors.New("api key not configured (set CR_API_KEY)")
	ErrMissingClanTag = errors.New("clan tag not configured")
)

// Validate checks the settings every mode needs. Live modes additionally
// require an API key, see RequireAPIKey.
func (c *Config) Validate() error {
	if c.Clan.Tag == "" {
		return ErrMissingClanTag
	}
	switch c.Cache.Backend {
	case BackendFile, BackendSQLite, BackendMySQL, BackendBadger:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.API.PageSize)
	}
	if c.API.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive, got %d", c.API.MaxPages)
	}
	return nil
}

func (c *Config) RequireAPIKey() error {
	if c.API.Key == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// OpenGormDB opens the SQL cache database for the sqlite and mysql backends.
func (c *Config) OpenGormDB() (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch c.Cache.Backend {
	case BackendSQLite:
		if err := os.MkdirAll(c.Cache.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		return gorm.Open(sqlite.Open(filepath.Join(c.Cache.Dir, "cache.db")), gcfg)
	case BackendMySQL:
		cfg := gomysql.NewConfig()
		cfg.User = c.Database.User
		cfg.Passwd = c.Database.Password
		cfg.Net = "tcp"
		cfg.Addr = fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port)
		cfg.DBName = c.Database.Name
		cfg.ParseTime = true

		connector, err := gomysql.NewConnector(cfg)
		if err != nil {
			return nil, fmt.Errorf("create connector: %w", err)
		}
		sqlDB := sql.OpenDB(connector)
		if err := sqlDB.Ping(); err != nil {
			return nil, fmt.Errorf("ping db: %w", err)
		}
		return gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), gcfg)
	default:
		return nil, fmt.Errorf("backend %q has no sql database", c.Cache.Backend)
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func overrideNonZero[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

type ctxKey string

const configContextKey ctxKey = "royale-audit.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}
