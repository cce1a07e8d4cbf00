package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string // サーバーポート（8080）
	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	JWTSecret           string // JWT署名シークレット
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	RefreshGracePeriod  time.Duration // ローテーション直後の旧トークン再送を許す時間
	VerificationCodeTTL time.Duration
	BcryptCost          int

	// 空なら既定の許可リストを使う
	AllowedEmailDomains []string
	BlockedEmailDomains []string

	SMTPHost     string // 空ならログ出力のみ
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	SchedulerEnabled  bool
	SchedulerInterval time.Duration
	CleanupInterval   time.Duration
	RedisURL          string // 空ならリースなし（単一プロセス前提）

	AdminAPIKey   string
	FEURL         string // フロントURL（CORSで使う）
	CookieSecure  bool
	AuthRateLimit float64 // /auth の秒間リクエスト数
	AuthRateBurst int
}

// 最低限のbcryptコスト
const minBcryptCost = 10

// Loadは環境変数から設定を読む
func Load() (Config, error) {
	var err error
	cfg := Config{
		Port:     getenv("PORT", "8080"),
		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		AllowedEmailDomains: splitList(os.Getenv("ALLOWED_EMAIL_DOMAINS")),
		BlockedEmailDomains: splitList(os.Getenv("BLOCKED_EMAIL_DOMAINS")),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:     getenv("SMTP_FROM", "no-reply@fintrack.local"),

		RedisURL:    os.Getenv("REDIS_URL"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),
		FEURL:       getenv("FE_URL", "http://localhost:5173"),
	}

	if cfg.PostgresPort, err = intOr("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.SMTPPort, err = intOr("SMTP_PORT", 587); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = intOr("BCRYPT_COST", 12); err != nil {
		return Config{}, err
	}
	if cfg.AuthRateBurst, err = intOr("AUTH_RATE_BURST", 10); err != nil {
		return Config{}, err
	}
	if cfg.AuthRateLimit, err = floatOr("AUTH_RATE_LIMIT", 5); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationOr("ACCESS_TOKEN_TTL", 15*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationOr("REFRESH_TOKEN_TTL", 7*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RefreshGracePeriod, err = durationOr("REFRESH_GRACE_PERIOD", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.VerificationCodeTTL, err = durationOr("VERIFICATION_CODE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.SchedulerInterval, err = durationOr("SCHEDULER_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.CleanupInterval, err = durationOr("CLEANUP_INTERVAL", 6*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.SchedulerEnabled, err = boolOr("SCHEDULER_ENABLED", true); err != nil {
		return Config{}, err
	}
	if cfg.CookieSecure, err = boolOr("COOKIE_SECURE", true); err != nil {
		return Config{}, err
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		if cfg.PostgresUser == "" {
			return Config{}, fmt.Errorf("POSTGRES_USER is required")
		}
		if cfg.PostgresDB == "" {
			return Config{}, fmt.Errorf("POSTGRES_DB is required")
		}
	}
	if cfg.BcryptCost < minBcryptCost {
		return Config{}, fmt.Errorf("BCRYPT_COST must be >= %d", minBcryptCost)
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 || cfg.VerificationCodeTTL <= 0 {
		return Config{}, fmt.Errorf("token TTLs must be positive")
	}
	if cfg.RefreshGracePeriod < 0 {
		return Config{}, fmt.Errorf("REFRESH_GRACE_PERIOD must not be negative")
	}
	if cfg.SchedulerInterval <= 0 || cfg.CleanupInterval <= 0 {
		return Config{}, fmt.Errorf("scheduler intervals must be positive")
	}

	return cfg, nil
}

func (c Config) IsDev() bool {
	return c.GoEnv == "dev"
}

// DSNはgorm/golang-migrate両方で使える postgres:// 形式
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.PostgresUser, c.PostgresPassword),
		Host:     fmt.Sprintf("%s:%d", c.PostgresHost, c.PostgresPort),
		Path:     "/" + c.PostgresDB,
		RawQuery: "sslmode=" + url.QueryEscape(c.PostgresSSLMode),
	}
	return u.String()
}

// ":8080" 形式
func (c Config) Addr() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func intOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func floatOr(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return f, nil
}

func boolOr(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be bool: %w", key, err)
	}
	return b, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	return d, nil
}

// カンマ区切りを小文字のリストに
func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
