package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxMultipartMB int64
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	AutoMigrate     bool
}

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketReports string
	UseSSL        bool
	Region        string
	PresignTTL    time.Duration
	MaxPhotoBytes int64
	MaxVideoBytes int64
}

// SecurityConfig holds the signing secrets and session policy. The expiry
// values use the short-hand "<n>m" / "<n>d" form and are resolved by
// security.ParseExpiresIn.
type SecurityConfig struct {
	AccessSecret        string
	RefreshSecret       string
	AccessExpiresIn     string
	RefreshExpiresIn    string
	SessionHashCost     int
	SessionWindow       int
	SelfAssignableRoles []string
}

type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

type DashboardConfig struct {
	CacheTTL time.Duration
	Timezone string
}

type JanitorConfig struct {
	QueueSize    int
	PruneTimeout time.Duration
	SweepSpec    string
}

// TelemetryConfig points the OTLP metric exporter at a collector. An empty
// endpoint disables export.
type TelemetryConfig struct {
	OTLPEndpoint   string
	Insecure       bool
	ExportInterval time.Duration
}

type LogConfig struct {
	Level string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Postgres         PostgresConfig
	Redis            RedisConfig
	Storage          StorageConfig
	Security         SecurityConfig
	Cookie           CookieConfig
	Dashboard        DashboardConfig
	Janitor          JanitorConfig
	Log              LogConfig
	Telemetry        TelemetryConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

func Load() (*AppConfig, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// LoadPostgres reads only the database section, so tooling such as
// cmd/migrate can run without the signing secrets being configured.
func LoadPostgres() (PostgresConfig, error) {
	v, err := newViper()
	if err != nil {
		return PostgresConfig{}, err
	}
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, withHooks); err != nil {
		return PostgresConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg.Postgres, nil
}

func newViper() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	v.SetEnvPrefix("BIZREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}
	return v, nil
}

func withHooks(dc *mapstructure.DecoderConfig) {
	dc.TagName = "mapstructure"
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, withHooks); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the auth core cannot run safely with.
func (c *AppConfig) Validate() error {
	var errs []error

	if c.Security.AccessSecret == "" {
		errs = append(errs, errors.New("security.accesssecret is required"))
	}
	if c.Security.RefreshSecret == "" {
		errs = append(errs, errors.New("security.refreshsecret is required"))
	}
	if c.Security.AccessSecret != "" && c.Security.AccessSecret == c.Security.RefreshSecret {
		errs = append(errs, errors.New("access and refresh secrets must differ"))
	}
	if c.Security.SessionWindow <= 0 {
		errs = append(errs, errors.New("security.sessionwindow must be positive"))
	}

	switch strings.ToLower(c.Cookie.SameSite) {
	case "lax", "strict":
	case "none":
		if !c.Cookie.Secure && !c.IsProduction() {
			errs = append(errs, errors.New("cookie.samesite=none requires cookie.secure"))
		}
	default:
		errs = append(errs, fmt.Errorf("cookie.samesite %q is not one of lax, strict, none", c.Cookie.SameSite))
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "60s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.maxmultipartmb", 120)

	// Keys without a default are invisible to AutomaticEnv during Unmarshal,
	// so every env-only setting is registered here.
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.connmaxidletime", "5m")
	v.SetDefault("postgres.automigrate", true)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.poolsize", 10)
	v.SetDefault("redis.dialtimeout", "5s")

	v.SetDefault("storage.endpoint", "127.0.0.1:9000")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucketreports", "bizreport-reports")
	v.SetDefault("storage.usessl", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.presignttl", "15m")
	v.SetDefault("storage.maxphotobytes", 10<<20)
	v.SetDefault("storage.maxvideobytes", 100<<20)

	v.SetDefault("security.accesssecret", "")
	v.SetDefault("security.refreshsecret", "")
	v.SetDefault("security.accessexpiresin", "15m")
	v.SetDefault("security.refreshexpiresin", "30d")
	v.SetDefault("security.sessionhashcost", 12)
	v.SetDefault("security.sessionwindow", 20)
	v.SetDefault("security.selfassignableroles", []string{"INVESTOR", "BUSINESS_OWNER"})

	v.SetDefault("cookie.secure", false)
	v.SetDefault("cookie.samesite", "lax")
	v.SetDefault("cookie.domain", "")

	v.SetDefault("dashboard.cachettl", "60s")
	v.SetDefault("dashboard.timezone", "UTC")

	v.SetDefault("janitor.queuesize", 256)
	v.SetDefault("janitor.prunetimeout", "5s")
	v.SetDefault("janitor.sweepspec", "0 30 3 * * *")

	v.SetDefault("log.level", "")

	v.SetDefault("telemetry.otlpendpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.exportinterval", "10s")
	v.SetDefault("allowcorsorigins", []string{"http://localhost:3000"})
}
