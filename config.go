package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// collectionSuffix はビルドモードごとに config_local.go / config_prod.go で設定されます。
var collectionSuffix string

// コレクション名
const (
	usersCollection         = "users"
	eventsCollection        = "events"
	notificationsCollection = "notifications"
)

// collectionName はビルドモードに応じた実際のコレクション名を返します。
func collectionName(base string) string {
	return base + collectionSuffix
}

// PullConfig は引っ張って更新するジェスチャーの調整値です。
type PullConfig struct {
	Threshold     float64       `yaml:"threshold"`
	Resistance    float64       `yaml:"resistance"`
	DeadZone      float64       `yaml:"dead_zone"`
	RefreshSettle time.Duration `yaml:"refresh_settle"`
	CancelSettle  time.Duration `yaml:"cancel_settle"`
}

// Config はアプリケーション全体の設定です。
type Config struct {
	// 環境変数からのみ読む値
	CredentialsJSON string `yaml:"-"`
	SessionSecret   string `yaml:"-"`

	Port             string        `yaml:"port"`
	RefreshCron      string        `yaml:"refresh_cron"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	BatchConcurrency int           `yaml:"batch_concurrency"`
	Pull             PullConfig    `yaml:"pull"`
}

// DefaultConfig は既定値の設定を返します。
func DefaultConfig() *Config {
	return &Config{
		Port:             "8080",
		RefreshCron:      "*/15 * * * *",
		SessionTTL:       24 * time.Hour,
		BatchConcurrency: 8,
		Pull: PullConfig{
			Threshold:     40,
			Resistance:    2.5,
			DeadZone:      10,
			RefreshSettle: 800 * time.Millisecond,
			CancelSettle:  300 * time.Millisecond,
		},
	}
}

// Normalize は未設定・不正な値を既定値で埋めます。
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Port == "" {
		c.Port = def.Port
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = def.SessionTTL
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = def.BatchConcurrency
	}
	if c.Pull.Threshold <= 0 {
		c.Pull.Threshold = def.Pull.Threshold
	}
	if c.Pull.Resistance <= 0 {
		c.Pull.Resistance = def.Pull.Resistance
	}
	if c.Pull.DeadZone <= 0 {
		c.Pull.DeadZone = def.Pull.DeadZone
	}
	if c.Pull.RefreshSettle <= 0 {
		c.Pull.RefreshSettle = def.Pull.RefreshSettle
	}
	if c.Pull.CancelSettle <= 0 {
		c.Pull.CancelSettle = def.Pull.CancelSettle
	}
}

// loadConfig は .env、任意のYAMLファイル、環境変数の順に設定を読み込みます。後に読んだものが優先されます。
func loadConfig() (*Config, error) {
	_ = godotenv.Load() // .envファイルはローカル開発でのみ使用。エラーは無視。

	cfg := DefaultConfig()
	if path := os.Getenv("CALENDAR_CONFIG"); path != "" {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// loadConfigFile はYAMLファイルを cfg に重ねます。ファイルが無い場合は既定値のまま続行します。
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warnw("config file not found, using defaults", "path", path)
			return nil
		}
		return fmt.Errorf("設定ファイルの読み込みに失敗しました: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.CredentialsJSON = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON")
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.RefreshCron = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SESSION_TTL が不正です: %w", err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("BATCH_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATCH_CONCURRENCY が不正です: %w", err)
		}
		cfg.BatchConcurrency = n
	}
	return nil
}
