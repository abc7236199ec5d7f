package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/erp/orderrecon/internal/domain/schema"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	Database  DatabaseConfig
	Metrics   MetricsConfig
	Engine    EngineConfig
	Platforms map[string]PlatformConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// DatabaseConfig holds run history store settings
type DatabaseConfig struct {
	Driver          string `validate:"oneof=sqlite postgres"`
	Path            string // sqlite file, ":memory:" for an in-process store
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	// queries slower than this are logged as warnings; zero disables
	SlowThreshold time.Duration
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Enabled bool
	PushURL string `validate:"omitempty,url"`
	Job     string
}

// EngineConfig holds defaults shared by all platforms
type EngineConfig struct {
	MatchThreshold float64 `validate:"gt=0,lte=1"`
	UTCOffset      time.Duration
	MaxWarnings    int `validate:"gte=0"`
	TimestampField string
	OutputBOM      bool
	Encodings      []string
}

// PlatformConfig describes how one marketplace's reports are reconciled
type PlatformConfig struct {
	Name           string          `mapstructure:"-"`
	Mapping        string          `mapstructure:"mapping" validate:"required"`
	PrimaryField   string          `mapstructure:"primary_field"`
	KeyParts       []KeyPartConfig `mapstructure:"key_parts" validate:"required,min=1,dive"`
	CurrencyFields []string        `mapstructure:"currency_fields"`
	Encodings      []string        `mapstructure:"encodings"`
	Delimiter      string          `mapstructure:"delimiter" validate:"omitempty,len=1"`
	StrictQuotes   bool            `mapstructure:"strict_quotes"`
	Sources        []SourceConfig  `mapstructure:"sources" validate:"required,min=1,dive"`
	SourceDedup    DedupConfig     `mapstructure:"source_dedup"`
	Dedup          DedupConfig     `mapstructure:"dedup"`
	Product        JoinConfig      `mapstructure:"product"`
	Shop           JoinConfig      `mapstructure:"shop"`
	Output         string          `mapstructure:"output" validate:"required"`
	MatchThreshold float64         `mapstructure:"match_threshold" validate:"gte=0,lte=1"`
	DateLayouts    []string        `mapstructure:"date_layouts"`
	Authoritative  []string        `mapstructure:"authoritative"`
	ReportTypes    map[string]int  `mapstructure:"-"`
}

// KeyPartConfig is one composite key field
type KeyPartConfig struct {
	Field string `mapstructure:"field" validate:"required"`
	Pad   int    `mapstructure:"pad" validate:"gte=0,lte=32"`
}

// SourceConfig is one report type of a platform
type SourceConfig struct {
	ReportType string   `mapstructure:"report_type" validate:"required"`
	Priority   int      `mapstructure:"priority"`
	Globs      []string `mapstructure:"globs" validate:"required,min=1"`
	Delimiter  string   `mapstructure:"delimiter" validate:"omitempty,len=1"`
}

// DedupConfig selects the grouping key, rank and tie policy of a dedup pass
type DedupConfig struct {
	Disabled       bool     `mapstructure:"disabled"`
	Key            []string `mapstructure:"key"` // empty groups by the composite key
	Rank           string   `mapstructure:"rank" validate:"omitempty,oneof=priority sequence timestamp"`
	TimestampField string   `mapstructure:"timestamp_field" validate:"required_if=Rank timestamp"`
	Keep           string   `mapstructure:"keep" validate:"omitempty,oneof=first last"`
}

// JoinConfig configures a master data join
type JoinConfig struct {
	Path     string   `mapstructure:"path"`
	KeyField string   `mapstructure:"key_field"`
	Fields   []string `mapstructure:"fields"`
}

// Enabled reports whether a master document is configured
func (j JoinConfig) Enabled() bool {
	return j.Path != ""
}

// Load reads configuration from config.toml (or the file at path when given)
// and the RECON_ environment
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/orderrecon")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("RECON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("engine.output_bom", true)
	v.SetDefault("engine.utc_offset", "8h")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("database.slow_threshold", "200ms")

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			PushURL: v.GetString("metrics.push_url"),
			Job:     v.GetString("metrics.job"),
		},
		Engine: EngineConfig{
			MatchThreshold: v.GetFloat64("engine.match_threshold"),
			UTCOffset:      v.GetDuration("engine.utc_offset"),
			MaxWarnings:    v.GetInt("engine.max_warnings"),
			TimestampField: v.GetString("engine.timestamp_field"),
			OutputBOM:      v.GetBool("engine.output_bom"),
			Encodings:      v.GetStringSlice("engine.encodings"),
		},
	}

	platforms := make(map[string]PlatformConfig)
	if err := v.UnmarshalKey("platforms", &platforms); err != nil {
		return nil, fmt.Errorf("error decoding platforms: %w", err)
	}
	cfg.Platforms = platforms

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for missing configuration
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "orderrecon"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}

	if cfg.Log.Level == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Level = "info"
		} else {
			cfg.Log.Level = "debug"
		}
	}
	if cfg.Log.Format == "" {
		if cfg.App.Env == "production" {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stderr"
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "orderrecon.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "orderrecon"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 5
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 5
	}

	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "orderrecon"
	}

	if cfg.Engine.MatchThreshold == 0 {
		cfg.Engine.MatchThreshold = 0.85
	}
	if cfg.Engine.MaxWarnings == 0 {
		cfg.Engine.MaxWarnings = 1000
	}
	if cfg.Engine.TimestampField == "" {
		cfg.Engine.TimestampField = "processing_timestamp"
	}
	if len(cfg.Engine.Encodings) == 0 {
		cfg.Engine.Encodings = []string{"utf-8-sig", "utf-8", "cp950", "big5", "gbk", "gb2312"}
	}

	for name, p := range cfg.Platforms {
		p.Name = name
		if p.MatchThreshold == 0 {
			p.MatchThreshold = cfg.Engine.MatchThreshold
		}
		if len(p.Encodings) == 0 {
			p.Encodings = cfg.Engine.Encodings
		}
		if p.SourceDedup.Rank == "" {
			p.SourceDedup.Rank = "sequence"
		}
		if p.SourceDedup.Keep == "" {
			p.SourceDedup.Keep = "last"
		}
		if p.Dedup.Rank == "" {
			p.Dedup.Rank = "priority"
		}
		if p.Dedup.Keep == "" {
			p.Dedup.Keep = "first"
		}
		if p.Product.KeyField == "" {
			p.Product.KeyField = "product_barcode"
		}
		if p.Shop.KeyField == "" {
			p.Shop.KeyField = "platform"
		}
		p.ReportTypes = make(map[string]int, len(p.Sources))
		for _, s := range p.Sources {
			p.ReportTypes[s.ReportType] = s.Priority
		}
		cfg.Platforms[name] = p
	}
}

var validate = validator.New()

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := validate.Struct(c.Log); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := validate.Struct(c.Database); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := validate.Struct(c.Metrics); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := validate.Struct(c.Engine); err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Metrics.Enabled && c.Metrics.PushURL == "" {
		return fmt.Errorf("metrics.push_url is required when metrics are enabled")
	}
	if c.Engine.UTCOffset < -14*time.Hour || c.Engine.UTCOffset > 14*time.Hour {
		return fmt.Errorf("engine.utc_offset must be within ±14h, got %s", c.Engine.UTCOffset)
	}

	if c.App.Env == "production" && c.Database.Driver == "postgres" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	for _, name := range c.PlatformNames() {
		if err := c.Platforms[name].validate(); err != nil {
			return fmt.Errorf("platforms.%s: %w", name, err)
		}
	}
	return nil
}

func (p PlatformConfig) validate() error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	seen := make(map[string]bool, len(p.Sources))
	for _, s := range p.Sources {
		if seen[s.ReportType] {
			return fmt.Errorf("duplicate report_type %q", s.ReportType)
		}
		seen[s.ReportType] = true
	}
	if len(p.Product.Fields) > 0 && !p.Product.Enabled() {
		return fmt.Errorf("product.fields given without product.path")
	}
	return nil
}

// PlatformNames returns the configured platforms in sorted order
func (c *Config) PlatformNames() []string {
	names := make([]string, 0, len(c.Platforms))
	for name := range c.Platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Platform returns the configuration of one platform. An unknown platform is
// a configuration error.
func (c *Config) Platform(name string) (PlatformConfig, error) {
	p, ok := c.Platforms[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return PlatformConfig{}, schema.NewConfigError("platforms",
			fmt.Sprintf("platform %q is not configured (known: %s)", name, strings.Join(c.PlatformNames(), ", ")), nil)
	}
	return p, nil
}

// DelimiterFor returns the CSV delimiter of a source, falling back to the
// platform's; zero means the reader default
func (p PlatformConfig) DelimiterFor(s SourceConfig) rune {
	d := s.Delimiter
	if d == "" {
		d = p.Delimiter
	}
	if d == "" {
		return 0
	}
	return []rune(d)[0]
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
