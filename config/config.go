package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	DefaultAPIURL = "https://api.deepseek.com/v1/chat/completions"
	DefaultModel  = "deepseek-chat"
)

// CredentialPolicy describes the accepted shape of a secret
type CredentialPolicy struct {
	MinLen int
	MaxLen int
	Prefix string
}

// Validate checks value against the policy. The value itself never appears in the error.
func (p CredentialPolicy) Validate(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s environment variable is not set", name)
	}
	if n := len(value); n < p.MinLen || (p.MaxLen > 0 && n > p.MaxLen) {
		return fmt.Errorf("%s length must be between %d-%d chars", name, p.MinLen, p.MaxLen)
	}
	if p.Prefix != "" && !strings.HasPrefix(value, p.Prefix) {
		return fmt.Errorf("%s must start with %q", name, p.Prefix)
	}
	return nil
}

// Credentials are loaded once and read-only afterwards
type Credentials struct {
	BotToken string
	APIKey   string
}

// Limits groups the per-message bounds and rate limiter policy
type Limits struct {
	MaxInputLength    int
	MaxResponseLength int
	Cooldown          time.Duration
	Retention         time.Duration
	SweepInterval     time.Duration
}

// Upstream groups the completion backend settings
type Upstream struct {
	Provider       string
	APIURL         string
	Model          string
	Temperature    float64
	MaxTokens      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
	AttemptTimeout time.Duration
	MaxConcurrency int
	MinInterval    time.Duration
}

// Config ilovaning konfiguratsiyasi
type Config struct {
	Credentials       Credentials
	Limits            Limits
	Upstream          Upstream
	JournalDBPath     string
	JournalMemorySize int
	MetricsAddr       string
	LogLevel          string
}

// Defaults returns the configuration used when no overrides are set
func Defaults() Config {
	return Config{
		Limits: Limits{
			MaxInputLength:    2000,
			MaxResponseLength: 4096,
			Cooldown:          5 * time.Second,
			Retention:         time.Hour,
			SweepInterval:     10 * time.Minute,
		},
		Upstream: Upstream{
			Provider:       ProviderOpenAI,
			APIURL:         DefaultAPIURL,
			Model:          DefaultModel,
			Temperature:    0.7,
			MaxTokens:      2048,
			MaxAttempts:    3,
			RetryBaseDelay: time.Second,
			AttemptTimeout: 30 * time.Second,
			MaxConcurrency: 3,
			MinInterval:    350 * time.Millisecond,
		},
		JournalMemorySize: 500,
		LogLevel:          "info",
	}
}

// Load konfiguratsiyani yuklash. envFiles are passed to godotenv; with none,
// a missing .env in the working directory is ignored.
func Load(envFiles ...string) (*Config, error) {
	if err := LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg := Defaults()
	r := &reader{}

	cfg.Credentials = Credentials{
		BotToken: firstEnv("TELEGRAM_BOT_TOKEN", "BOT_TOKEN"),
		APIKey:   firstEnv("LLM_API_KEY", "DEEPSEEK_API_KEY", "GEMINI_API_KEY"),
	}
	tokenPolicy := CredentialPolicy{
		MinLen: r.int("BOT_TOKEN_MIN_LEN", 30),
		MaxLen: r.int("BOT_TOKEN_MAX_LEN", 100),
	}
	keyPolicy := CredentialPolicy{
		MinLen: r.int("API_KEY_MIN_LEN", 20),
		MaxLen: r.int("API_KEY_MAX_LEN", 200),
		Prefix: os.Getenv("API_KEY_PREFIX"),
	}

	l := &cfg.Limits
	l.MaxInputLength = r.int("MAX_INPUT_LENGTH", l.MaxInputLength)
	l.MaxResponseLength = r.int("MAX_RESPONSE_LENGTH", l.MaxResponseLength)
	l.Cooldown = r.duration("REQUEST_COOLDOWN", l.Cooldown)
	l.Retention = r.duration("RATE_LIMIT_RETENTION", l.Retention)
	l.SweepInterval = r.duration("RATE_LIMIT_SWEEP_INTERVAL", l.SweepInterval)

	u := &cfg.Upstream
	u.Provider = strings.ToLower(r.str("LLM_PROVIDER", u.Provider))
	u.APIURL = r.str("LLM_API_URL", u.APIURL)
	u.Model = r.str("LLM_MODEL", u.Model)
	u.Temperature = r.float("LLM_TEMPERATURE", u.Temperature)
	u.MaxTokens = r.int("LLM_MAX_TOKENS", u.MaxTokens)
	u.MaxAttempts = r.int("LLM_MAX_ATTEMPTS", u.MaxAttempts)
	u.RetryBaseDelay = r.duration("LLM_RETRY_BASE_DELAY", u.RetryBaseDelay)
	u.AttemptTimeout = r.duration("LLM_ATTEMPT_TIMEOUT", u.AttemptTimeout)
	u.MaxConcurrency = r.int("LLM_MAX_CONCURRENCY", u.MaxConcurrency)
	u.MinInterval = r.duration("LLM_MIN_INTERVAL", u.MinInterval)

	cfg.JournalDBPath = os.Getenv("JOURNAL_DB_PATH")
	cfg.JournalMemorySize = r.int("JOURNAL_MEMORY_SIZE", cfg.JournalMemorySize)
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.LogLevel = strings.ToLower(r.str("LOG_LEVEL", cfg.LogLevel))

	if r.err != nil {
		return nil, r.err
	}

	// Validatsiya
	if err := tokenPolicy.Validate("TELEGRAM_BOT_TOKEN", cfg.Credentials.BotToken); err != nil {
		return nil, err
	}
	if err := keyPolicy.Validate("LLM_API_KEY", cfg.Credentials.APIKey); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadEnv copies envFiles into the process environment without overriding
// variables that are already set. With no files, .env is tried and may be absent.
func LoadEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(envFiles...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate checks the non-secret policy values
func (c *Config) Validate() error {
	var errs []error
	if c.Limits.MaxInputLength <= 0 {
		errs = append(errs, errors.New("MAX_INPUT_LENGTH must be positive"))
	}
	if c.Limits.MaxResponseLength <= 0 {
		errs = append(errs, errors.New("MAX_RESPONSE_LENGTH must be positive"))
	}
	if c.Limits.Cooldown <= 0 {
		errs = append(errs, errors.New("REQUEST_COOLDOWN must be positive"))
	}
	if c.Limits.Retention <= c.Limits.Cooldown {
		errs = append(errs, errors.New("RATE_LIMIT_RETENTION must be longer than REQUEST_COOLDOWN"))
	}
	if c.Limits.SweepInterval <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_SWEEP_INTERVAL must be positive"))
	}
	switch c.Upstream.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER %q is not supported", c.Upstream.Provider))
	}
	if c.Upstream.MaxAttempts < 1 {
		errs = append(errs, errors.New("LLM_MAX_ATTEMPTS must be at least 1"))
	}
	if c.Upstream.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("LLM_ATTEMPT_TIMEOUT must be positive"))
	}
	if c.Upstream.MaxConcurrency < 1 {
		errs = append(errs, errors.New("LLM_MAX_CONCURRENCY must be at least 1"))
	}
	return errors.Join(errs...)
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// reader keeps the first parse error so Load can report it once
type reader struct {
	err error
}

func (r *reader) str(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func (r *reader) int(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		r.fail(fmt.Errorf("%s noto'g'ri formatda: %w", name, err))
		return def
	}
	return v
}

func (r *reader) float(name string, def float64) float64 {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		r.fail(fmt.Errorf("%s noto'g'ri formatda: %w", name, err))
		return def
	}
	return v
}

func (r *reader) duration(name string, def time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		r.fail(fmt.Errorf("%s noto'g'ri formatda: %w", name, err))
		return def
	}
	return v
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
