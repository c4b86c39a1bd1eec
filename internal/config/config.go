package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"alpha_innotec_planner/internal/models"
)

// ErrInvalidConfig is returned for configuration that must be fixed before
// the planner can run. It is never corrected silently.
var ErrInvalidConfig = errors.New("invalid config")

// EnvPrefix prefixes every environment override, e.g. PLANNER_DEVICE_HOST.
const EnvPrefix = "PLANNER"

// State backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type Config struct {
	Device   DeviceConfig   `mapstructure:"device"`
	Planner  PlannerConfig  `mapstructure:"planner"`
	Prices   PricesConfig   `mapstructure:"prices"`
	State    StateConfig    `mapstructure:"state"`
	DB       DBConfig       `mapstructure:"db"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Log      LogConfig      `mapstructure:"log"`
}

type DeviceConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	LoginCode       string        `mapstructure:"loginCode"`
	ResponseTimeout time.Duration `mapstructure:"responseTimeout"`
	Firmware        string        `mapstructure:"firmware"`
}

type PlannerConfig struct {
	LocalTimeZone                   string             `mapstructure:"localTimeZone"`
	HeatpumpTimeZone                string             `mapstructure:"heatpumpTimeZone"`
	DesiredTapWaterTemperature      float64            `mapstructure:"desiredTapWaterTemperature"`
	DisinfectionTapWaterTemperature float64            `mapstructure:"disinfectionTapWaterTemperature"`
	MinHoursSinceLastDisinfection   int                `mapstructure:"minHoursSinceLastDisinfection"`
	MaxHoursSinceLastDisinfection   int                `mapstructure:"maxHoursSinceLastDisinfection"`
	LoadProfile                     models.LoadProfile `mapstructure:"loadProfile"`
	DisinfectionLoadProfile         models.LoadProfile `mapstructure:"disinfectionLoadProfile"`
	JitterMaxMinutes                int                `mapstructure:"jitterMaxMinutes"`
	BlockHeatingDuringWorstPrices   bool               `mapstructure:"blockHeatingDuringWorstPrices"`
	LookaheadHours                  int                `mapstructure:"lookaheadHours"`
}

type PricesConfig struct {
	File string `mapstructure:"file"`
}

type StateConfig struct {
	Backend       string `mapstructure:"backend"`
	Path          string `mapstructure:"path"`
	RedisAddr     string `mapstructure:"redisAddr"`
	RedisPassword string `mapstructure:"redisPassword"`
	RedisDB       int    `mapstructure:"redisDB"`
	RedisKey      string `mapstructure:"redisKey"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type MQTTConfig struct {
	Broker   string `mapstructure:"broker"`
	ClientID string `mapstructure:"clientId"`
	Topic    string `mapstructure:"topic"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type HTTPConfig struct {
	Port        string        `mapstructure:"port"`
	TokenSecret string        `mapstructure:"tokenSecret"`
	TokenTTL    time.Duration `mapstructure:"tokenTTL"`
}

type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.host", "")
	v.SetDefault("device.port", 8214)
	v.SetDefault("device.loginCode", "999999")
	v.SetDefault("device.responseTimeout", 30*time.Second)
	v.SetDefault("device.firmware", "V3")

	v.SetDefault("planner.localTimeZone", "Europe/Amsterdam")
	v.SetDefault("planner.heatpumpTimeZone", "Europe/Amsterdam")
	v.SetDefault("planner.desiredTapWaterTemperature", 50.0)
	v.SetDefault("planner.disinfectionTapWaterTemperature", 60.0)
	v.SetDefault("planner.minHoursSinceLastDisinfection", 72)
	v.SetDefault("planner.maxHoursSinceLastDisinfection", 168)
	v.SetDefault("planner.jitterMaxMinutes", 0)
	v.SetDefault("planner.blockHeatingDuringWorstPrices", false)
	v.SetDefault("planner.lookaheadHours", 24)

	v.SetDefault("prices.file", "configs/spot-prices.yaml")

	v.SetDefault("state.backend", BackendSQLite)
	v.SetDefault("state.path", "last-state.yaml")
	v.SetDefault("state.redisAddr", "localhost:6379")
	v.SetDefault("state.redisPassword", "")
	v.SetDefault("state.redisDB", 0)
	v.SetDefault("state.redisKey", "alpha-innotec-planner:state")

	v.SetDefault("db.path", "app.db")

	v.SetDefault("mqtt.broker", "")
	v.SetDefault("mqtt.clientId", "alpha-innotec-planner")
	v.SetDefault("mqtt.topic", "alpha-innotec-planner/run")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")

	v.SetDefault("http.port", "8080")
	v.SetDefault("http.tokenSecret", "")
	v.SetDefault("http.tokenTTL", time.Hour)

	v.SetDefault("schedule.cron", "@hourly")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Load reads .env (if present), the YAML file at path and PLANNER_*
// environment overrides, then validates the result. An empty path looks
// for configs/config.yml and falls back to defaults when it is missing.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	p := c.Planner

	if c.Device.Host == "" {
		errs = append(errs, errors.New("device.host is required"))
	}
	if p.MinHoursSinceLastDisinfection < 0 {
		errs = append(errs, errors.New("planner.minHoursSinceLastDisinfection must not be negative"))
	}
	if p.MaxHoursSinceLastDisinfection <= p.MinHoursSinceLastDisinfection {
		errs = append(errs, fmt.Errorf("planner.maxHoursSinceLastDisinfection (%d) must exceed minHoursSinceLastDisinfection (%d)",
			p.MaxHoursSinceLastDisinfection, p.MinHoursSinceLastDisinfection))
	}
	if p.JitterMaxMinutes < 0 {
		errs = append(errs, errors.New("planner.jitterMaxMinutes must not be negative"))
	}
	if p.LookaheadHours <= 0 {
		errs = append(errs, errors.New("planner.lookaheadHours must be positive"))
	}
	if p.LoadProfile.TotalDuration() <= 0 {
		errs = append(errs, errors.New("planner.loadProfile has no duration"))
	}
	if p.DisinfectionLoadProfile.TotalDuration() <= 0 {
		errs = append(errs, errors.New("planner.disinfectionLoadProfile has no duration"))
	}
	if _, err := time.LoadLocation(p.LocalTimeZone); err != nil {
		errs = append(errs, fmt.Errorf("planner.localTimeZone: %w", err))
	}
	if _, err := time.LoadLocation(p.HeatpumpTimeZone); err != nil {
		errs = append(errs, fmt.Errorf("planner.heatpumpTimeZone: %w", err))
	}
	switch c.State.Backend {
	case BackendSQLite, BackendFile, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("state.backend %q is not one of sqlite, file, redis", c.State.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// HeatpumpLocation is the time zone the device clock runs in.
func (c *Config) HeatpumpLocation() *time.Location {
	return mustLocation(c.Planner.HeatpumpTimeZone)
}

// LocalLocation is the time zone used for log output and previews.
func (c *Config) LocalLocation() *time.Location {
	return mustLocation(c.Planner.LocalTimeZone)
}

// mustLocation falls back to UTC; Validate has already rejected unknown zones.
func mustLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
