package Config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"Convoy/Planner"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

type Config struct {
	Port        string
	DBDriver    string
	DatabaseURL string
	DBPath      string
	JWTSecret   string
	RedisURL    string
	CORSOrigins string

	PolicyFile string
	Policy     Planner.Policy

	BackupDir      string
	BackupSchedule string

	LogLevel  string
	LogFormat string
	LogDir    string

	PlanRateLimit float64
	PlanRateBurst int

	Mail Mail

	SlackBotToken    string
	SlackSnagChannel string
}

// Mail is the SMTP account snag notices are sent from. Notices are off
// while Server is empty.
type Mail struct {
	Server       string
	Port         int
	Username     string
	Password     string
	From         string
	FromName     string
	TLS          bool
	SkipTLSCheck bool
}

// Load reads the optional env files (".env" when none are given) and then the
// process environment. Missing env files are not an error.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:           getEnv("PORT", "3001"),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBPath:         getEnv("DB_PATH", "convoy.db"),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		RedisURL:       os.Getenv("REDIS_URL"),
		CORSOrigins:    getEnv("CORS_ORIGINS", "*"),
		PolicyFile:     os.Getenv("PLANNER_POLICY_FILE"),
		BackupDir:      getEnv("BACKUP_DIR", "backups"),
		BackupSchedule: getEnv("BACKUP_SCHEDULE", "0 0 2 * * *"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		LogDir:         os.Getenv("LOG_DIR"),
		Mail: Mail{
			Server:   os.Getenv("MAIL_SERVER"),
			Username: os.Getenv("MAIL_USERNAME"),
			Password: os.Getenv("MAIL_PASSWORD"),
			From:     getEnv("MAIL_DEFAULT_SENDER", "noreply@convoy.local"),
			FromName: getEnv("MAIL_FROM_NAME", "Convoy"),
		},
		SlackBotToken:    os.Getenv("SLACK_BOT_TOKEN"),
		SlackSnagChannel: os.Getenv("SLACK_SNAG_CHANNEL"),
	}
	if cfg.DatabaseURL != "" && cfg.DBDriver == "sqlite" {
		cfg.DBDriver = "postgres"
	}

	var err error
	if cfg.PlanRateLimit, err = strconv.ParseFloat(getEnv("PLAN_RATE_LIMIT", "1"), 64); err != nil {
		return Config{}, fmt.Errorf("PLAN_RATE_LIMIT: %w", err)
	}
	if cfg.PlanRateBurst, err = strconv.Atoi(getEnv("PLAN_RATE_BURST", "5")); err != nil {
		return Config{}, fmt.Errorf("PLAN_RATE_BURST: %w", err)
	}
	if cfg.Mail.Port, err = strconv.Atoi(getEnv("MAIL_PORT", "587")); err != nil {
		return Config{}, fmt.Errorf("MAIL_PORT: %w", err)
	}
	if cfg.Mail.TLS, err = strconv.ParseBool(getEnv("MAIL_USE_TLS", "false")); err != nil {
		return Config{}, fmt.Errorf("MAIL_USE_TLS: %w", err)
	}
	if cfg.Mail.SkipTLSCheck, err = strconv.ParseBool(getEnv("MAIL_SKIP_TLS_VERIFY", "false")); err != nil {
		return Config{}, fmt.Errorf("MAIL_SKIP_TLS_VERIFY: %w", err)
	}

	cfg.Policy = Planner.DefaultPolicy()
	if cfg.PolicyFile != "" {
		if cfg.Policy, err = LoadPolicy(cfg.PolicyFile); err != nil {
			return Config{}, err
		}
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres", "mysql":
	default:
		return Config{}, fmt.Errorf("DB_DRIVER: unsupported driver %q", cfg.DBDriver)
	}
	return cfg, nil
}

// LoadPolicy reads a json5 policy file. Keys left out keep their defaults.
func LoadPolicy(path string) (Planner.Policy, error) {
	p := Planner.DefaultPolicy()
	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read policy file: %w", err)
	}
	if err := json5.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return p, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}

// SetupLogging applies the configured level and formatter to the standard logger.
func (c Config) SetupLogging() {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		log.WithField("level", c.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
