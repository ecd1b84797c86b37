package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/fx"
)

// Module provides the process configuration. A missing required key fails the
// fx graph before any store is contacted.
var Module = fx.Module("config",
	fx.Provide(Load),
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64

	Metrics MetricsConfig

	Reporting ReportingConfig
	Audit     MongoConfig
	Usage     UsageConfig
	MongoAuth MongoAuthConfig

	OfferName    string
	Timezone     string
	RunTimeout   time.Duration
	QueryTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RunLockTTL    time.Duration
}

// ReportingConfig describes the relational reporting store.
type ReportingConfig struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	Table           string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime time.Duration
}

// MongoConfig describes one document store target.
type MongoConfig struct {
	Servers    string
	ReplicaSet string
	Username   string
	Password   string
	Database   string
	Collection string
}

// UsageConfig describes the sharded usage stores. Nodes is keyed by node
// label (A, B, C); credentials and namespace are shared by every node.
type UsageConfig struct {
	Nodes      map[string]NodeConfig
	Username   string
	Password   string
	Database   string
	Collection string
}

type NodeConfig struct {
	Servers    string
	ReplicaSet string
}

// MongoAuthConfig is shared by the audit store and every usage node.
type MongoAuthConfig struct {
	Mechanism      string
	Source         string
	Database       string
	ReadPreference string
}

type MetricsConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
}

// NodeLabels is the fixed order of the usage shards.
var NodeLabels = []string{"A", "B", "C"}

// UsageNode returns the full Mongo target for a usage node.
func (c Config) UsageNode(label string) (MongoConfig, bool) {
	node, ok := c.Usage.Nodes[label]
	if !ok {
		return MongoConfig{}, false
	}
	return MongoConfig{
		Servers:    node.Servers,
		ReplicaSet: node.ReplicaSet,
		Username:   c.Usage.Username,
		Password:   c.Usage.Password,
		Database:   c.Usage.Database,
		Collection: c.Usage.Collection,
	}, true
}

// Location resolves the timezone used to compute the audit day.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: invalid REPORT_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// MissingError lists every required key absent from the environment.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return "config: missing required environment variables: " + strings.Join(e.Keys, ", ")
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ErrInvalidTableName is returned when REPORTING_SQL_TABLENAME is not a plain identifier.
var ErrInvalidTableName = errors.New("config: REPORTING_SQL_TABLENAME must be a plain SQL identifier")

// ErrRunLockTTLTooShort is returned when the run lock could expire before the
// run deadline, letting a second run start mid-run.
var ErrRunLockTTLTooShort = errors.New("config: RUN_LOCK_TTL must not be shorter than REPORT_RUN_TIMEOUT")

const runLockMargin = 5 * time.Minute

// defaultRunLockTTL is one hour, stretched to outlive a longer run deadline.
func defaultRunLockTTL(runTimeout time.Duration) time.Duration {
	if ttl := runTimeout + runLockMargin; ttl > time.Hour {
		return ttl
	}
	return time.Hour
}

// Load loads configuration from the environment, a .env file and an optional
// auldata.yml file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("auldata")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/auldata")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: read auldata.yml: %w", err)
		}
	}

	return FromLookup(func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	})
}

// FromLookup builds a Config from a key lookup function. It is split from Load
// so that tests can feed a plain map.
func FromLookup(lookup func(string) string) (Config, error) {
	r := &reader{lookup: lookup}

	cfg := Config{
		AppName:     r.optional("APP_SERVICE", "auldata-report"),
		AppVersion:  r.optional("APP_VERSION", "0.1.0"),
		Environment: r.optional("ENVIRONMENT", "development"),

		LogLevel:  strings.ToLower(r.optional("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(r.optional("LOG_FORMAT", "json")),

		OtelEnabled:          r.bool("OTEL_ENABLED", false),
		OtelExporterEndpoint: r.optional("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OtelExporterProtocol: strings.ToLower(r.optional("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
		OtelSamplingRatio:    r.float("OTEL_SAMPLING_RATIO", 1),

		Metrics: MetricsConfig{
			Exporter:  strings.ToLower(r.optional("METRICS_EXPORTER", "")),
			Endpoint:  r.optional("METRICS_ENDPOINT", ""),
			AuthToken: r.optional("METRICS_AUTH_TOKEN", ""),
		},

		Reporting: ReportingConfig{
			Type:            strings.ToLower(r.optional("REPORTING_SQL_TYPE", "mysql")),
			Host:            r.required("REPORTING_SQL_SERVER"),
			Port:            r.required("REPORTING_SQL_PORT"),
			Name:            r.required("REPORTING_SQL_DATABASE"),
			User:            r.required("REPORTING_SQL_USERNAME"),
			Password:        r.required("REPORTING_SQL_PASSWORD"),
			Table:           r.required("REPORTING_SQL_TABLENAME"),
			MaxIdleConn:     r.int("REPORTING_SQL_MAX_IDLE_CONN", 2),
			MaxOpenConn:     r.int("REPORTING_SQL_MAX_OPEN_CONN", 4),
			ConnMaxLifetime: r.duration("REPORTING_SQL_CONN_MAX_LIFETIME", time.Hour),
		},

		Audit: MongoConfig{
			Servers:    r.required("AUDIT_MONGO_SERVER"),
			ReplicaSet: r.required("AUDIT_MONGO_REPLICASET"),
			Username:   r.required("AUDIT_MONGO_USERNAME"),
			Password:   r.required("AUDIT_MONGO_PASSWORD"),
			Database:   r.required("AUDIT_MONGO_DATABASE"),
			Collection: r.required("AUDIT_MONGO_COLLECTION"),
		},

		Usage: UsageConfig{
			Nodes:      make(map[string]NodeConfig, len(NodeLabels)),
			Username:   r.required("ARC_MONGO_USERNAME"),
			Password:   r.required("ARC_MONGO_PASSWORD"),
			Database:   r.required("ARC_MONGO_DATABASE"),
			Collection: r.required("ARC_MONGO_COLLECTION"),
		},

		MongoAuth: MongoAuthConfig{
			Mechanism:      r.required("ARC_MONGO_AUTH_MECHANISM"),
			Source:         r.required("ARC_MONGO_AUTH_SOURCE"),
			ReadPreference: r.required("ARC_MONGO_READ_PREFERENCE"),
		},

		OfferName:    r.required("OFFER_NAME"),
		Timezone:     r.optional("REPORT_TIMEZONE", ""),
		RunTimeout:   r.duration("REPORT_RUN_TIMEOUT", 30*time.Minute),
		QueryTimeout: r.duration("REPORT_QUERY_TIMEOUT", 2*time.Minute),

		RedisAddr:     r.optional("REDIS_ADDR", ""),
		RedisPassword: r.optional("REDIS_PASSWORD", ""),
		RedisDB:       r.int("REDIS_DB", 0),
		RunLockTTL:    r.duration("RUN_LOCK_TTL", 0),
	}
	cfg.MongoAuth.Database = r.optional("ARC_MONGO_AUTH_DATABASE", cfg.MongoAuth.Source)

	for _, label := range NodeLabels {
		cfg.Usage.Nodes[label] = NodeConfig{
			Servers:    r.required("ARC_MONGO_SERVER_" + label),
			ReplicaSet: r.required("ARC_MONGO_REPLICASET_" + label),
		}
	}

	if len(r.missing) > 0 {
		sort.Strings(r.missing)
		return Config{}, &MissingError{Keys: r.missing}
	}
	if len(r.invalid) > 0 {
		return Config{}, fmt.Errorf("config: invalid values: %s", strings.Join(r.invalid, ", "))
	}
	if !tableNamePattern.MatchString(cfg.Reporting.Table) {
		return Config{}, ErrInvalidTableName
	}
	if _, err := cfg.Location(); err != nil {
		return Config{}, err
	}
	if cfg.RunLockTTL == 0 {
		cfg.RunLockTTL = defaultRunLockTTL(cfg.RunTimeout)
	}
	if cfg.RunLockTTL < cfg.RunTimeout {
		return Config{}, ErrRunLockTTLTooShort
	}

	return cfg, nil
}

// ReportingAddr joins the reporting host and port.
func (c ReportingConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

type reader struct {
	lookup  func(string) string
	missing []string
	invalid []string
}

func (r *reader) required(key string) string {
	value := r.lookup(key)
	if value == "" {
		r.missing = append(r.missing, key)
	}
	return value
}

func (r *reader) optional(key, def string) string {
	if value := r.lookup(key); value != "" {
		return value
	}
	return def
}

func (r *reader) bool(key string, def bool) bool {
	value := strings.ToLower(r.lookup(key))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		r.invalid = append(r.invalid, key)
		return def
	}
}

func (r *reader) int(key string, def int) int {
	value := r.lookup(key)
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.invalid = append(r.invalid, key)
		return def
	}
	return parsed
}

func (r *reader) float(key string, def float64) float64 {
	value := r.lookup(key)
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.invalid = append(r.invalid, key)
		return def
	}
	return parsed
}

// duration accepts Go durations ("90s", "2m") and bare seconds ("3600").
func (r *reader) duration(key string, def time.Duration) time.Duration {
	value := r.lookup(key)
	if value == "" {
		return def
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		r.invalid = append(r.invalid, key)
		return def
	}
	return parsed
}
