package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"image-to-text/api/internal/imageprep"
	"image-to-text/api/internal/logger"
	"image-to-text/api/internal/textcheck"
)

type Config struct {
	Port          string
	LogLevel      string
	DefaultEngine string

	GeminiAPIKey   string
	GeminiModel    string
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string
	OpenAILogprobs bool
	YCOAuthToken   string
	YCFolderID     string

	TesseractEnabled bool
	TesseractLangs   []string

	MinScore          float64
	MinConfidence     float64
	NeutralConfidence float64
	Substitutions     string

	MaxPixels      int
	MaxUploadBytes int64
	RequestTimeout time.Duration
	CORSOrigins    []string

	HistoryRetention time.Duration

	TelegramBotToken string
	WebhookURL       string
	BotWorkers       int
}

// MustEnv returns the variable or exits.
func MustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		logger.Default.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// parser collects every malformed value so Load reports them together.
type parser struct{ errs []error }

func (p *parser) fail(k, v string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q: %w", k, v, err))
}

func (p *parser) float(k string, def float64) float64 {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return f
}

func (p *parser) int(k string, def int) int {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return n
}

func (p *parser) bool(k string, def bool) bool {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return b
}

// duration accepts Go durations ("90s", "72h") or plain seconds.
func (p *parser) duration(k string, def time.Duration) time.Duration {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(k, v, err)
		return def
	}
	return d
}

func list(k string, def []string) []string {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	out := strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '+' || r == ' ' })
	if len(out) == 0 {
		return def
	}
	return out
}

func Load() (*Config, error) {
	var p parser
	def := textcheck.DefaultPolicy()

	c := &Config{
		Port:          getEnv("PORT", "8080"),
		LogLevel:      getEnv("LOG_LEVEL", logger.LevelInfo),
		DefaultEngine: strings.ToLower(getEnv("DEFAULT_ENGINE", "")),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		OpenAILogprobs: p.bool("OPENAI_LOGPROBS", false),
		YCOAuthToken:   getEnv("YC_OAUTH_TOKEN", ""),
		YCFolderID:     getEnv("YC_FOLDER_ID", ""),

		TesseractEnabled: p.bool("TESSERACT_ENABLED", false),
		TesseractLangs:   list("TESSERACT_LANGS", []string{"eng"}),

		MinScore:          p.float("MIN_SCORE", def.MinScore),
		MinConfidence:     p.float("MIN_CONFIDENCE", def.MinConfidence),
		NeutralConfidence: p.float("NEUTRAL_CONFIDENCE", def.NeutralConfidence),
		Substitutions:     getEnv("TEXT_SUBSTITUTIONS", textcheck.SubstitutionsDefault),

		MaxPixels:      p.int("MAX_PIXELS", imageprep.DefaultMaxPixels),
		MaxUploadBytes: int64(p.int("MAX_UPLOAD_BYTES", 20<<20)),
		RequestTimeout: p.duration("REQUEST_TIMEOUT", 180*time.Second),
		CORSOrigins:    list("CORS_ORIGINS", []string{"*"}),

		HistoryRetention: p.duration("HISTORY_RETENTION", 30*24*time.Hour),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),
		BotWorkers:       p.int("BOT_WORKERS", 8),
	}

	if _, err := textcheck.ParseSubstitutions(c.Substitutions); err != nil {
		p.errs = append(p.errs, fmt.Errorf("TEXT_SUBSTITUTIONS: %w", err))
	}
	if c.NeutralConfidence < 0 || c.NeutralConfidence > 100 {
		p.errs = append(p.errs, errors.New("NEUTRAL_CONFIDENCE must be within 0..100"))
	}
	if c.BotWorkers < 1 {
		c.BotWorkers = 1
	}
	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Policy builds the text acceptance policy from the config.
func (c *Config) Policy() textcheck.Policy {
	p := textcheck.DefaultPolicy()
	p.MinScore = c.MinScore
	p.MinConfidence = c.MinConfidence
	p.NeutralConfidence = c.NeutralConfidence
	if subs, err := textcheck.ParseSubstitutions(c.Substitutions); err == nil {
		p.Substitutions = subs
	}
	return p
}
