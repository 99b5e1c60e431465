package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pauljones0/smart-deals-bot/internal/util"
	"github.com/pauljones0/smart-deals-bot/internal/validator"
)

// Publisher kinds.
const (
	PublisherTelegram = "telegram"
	PublisherDiscord  = "discord"
	PublisherLog      = "log"
)

// Dedup backends.
const (
	BackendFile      = "file"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Selection holds the tuning knobs of the selection engine and batcher. It can
// be overridden as a block from a YAML file (SELECTION_CONFIG_PATH).
type Selection struct {
	WindowStart        float64  `yaml:"heavy_discount_start" validate:"gte=0,lte=100"`
	WindowEnd          float64  `yaml:"heavy_discount_end" validate:"gtefield=WindowStart,lte=100"`
	Floor              float64  `yaml:"min_discount" validate:"gte=0,ltefield=WindowStart"`
	Quota              int      `yaml:"min_top_deals" validate:"gte=1"`
	Step               float64  `yaml:"discount_step" validate:"gt=0"`
	PriorityCategories []string `yaml:"priority_categories" validate:"dive,required"`
	BatchSize          int      `yaml:"max_per_batch" validate:"gte=1,lte=10"`
	CaptionItems       int      `yaml:"max_caption_items" validate:"gte=1"`
}

type Config struct {
	Publisher         string
	BotToken          string
	Channel           string
	DiscordWebhookURL string

	FlipkartID     string
	FlipkartToken  string
	AWSKey         string
	AWSSecret      string
	AssocTag       string
	AmazonItemIDs  []string
	AmazonHost     string
	AmazonRegion   string
	StorefrontURL  string
	StorefrontMode string
	SelectorsPath  string

	Selection Selection

	PollInterval time.Duration
	RunTimeout   time.Duration

	DedupBackend string
	PostedFile   string
	SQLitePath   string
	ProjectID    string

	GeminiAPIKey string
	GeminiModel  string

	Port      string
	LogLevel  string
	LogFormat string
}

// DefaultSelection mirrors the tuning the bot has always shipped with.
func DefaultSelection() Selection {
	return Selection{
		WindowStart:        70,
		WindowEnd:          90,
		Floor:              20,
		Quota:              3,
		Step:               10,
		PriorityCategories: []string{"Electronics", "Fashion", "Home", "Kitchen & Appliances"},
		BatchSize:          10,
		CaptionItems:       5,
	}
}

func Load() (*Config, error) {
	publisher := strings.ToLower(os.Getenv("PUBLISHER"))
	if publisher == "" {
		publisher = PublisherTelegram
	}

	cfg := &Config{
		Publisher:         publisher,
		BotToken:          os.Getenv("BOT_TOKEN"),
		Channel:           os.Getenv("CHANNEL"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		FlipkartID:        os.Getenv("FLIPKART_ID"),
		FlipkartToken:     os.Getenv("FLIPKART_TOKEN"),
		AWSKey:            os.Getenv("AWS_KEY"),
		AWSSecret:         os.Getenv("AWS_SECRET"),
		AssocTag:          os.Getenv("ASSOC_TAG"),
		AmazonItemIDs:     util.SplitList(os.Getenv("AMAZON_ITEM_IDS")),
		AmazonHost:        getEnv("AMAZON_HOST", "webservices.amazon.com"),
		AmazonRegion:      getEnv("AMAZON_REGION", "us-east-1"),
		StorefrontURL:     os.Getenv("STOREFRONT_URL"),
		StorefrontMode:    getEnv("STOREFRONT_RENDER", "http"),
		SelectorsPath:     os.Getenv("SELECTORS_CONFIG_PATH"),
		DedupBackend:      strings.ToLower(getEnv("DEDUP_BACKEND", BackendFile)),
		PostedFile:        getEnv("POSTED_FILE", "posted_deals.txt"),
		SQLitePath:        getEnv("SQLITE_PATH", "posted_deals.db"),
		ProjectID:         os.Getenv("GOOGLE_CLOUD_PROJECT"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		Port:              getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}

	switch cfg.Publisher {
	case PublisherTelegram:
		if cfg.BotToken == "" || cfg.Channel == "" {
			return nil, fmt.Errorf("BOT_TOKEN and CHANNEL environment variables are required for the telegram publisher")
		}
	case PublisherDiscord:
		if cfg.DiscordWebhookURL == "" {
			return nil, fmt.Errorf("DISCORD_WEBHOOK_URL environment variable is required for the discord publisher")
		}
	case PublisherLog:
	default:
		return nil, fmt.Errorf("invalid PUBLISHER %q: want telegram, discord or log", cfg.Publisher)
	}

	switch cfg.DedupBackend {
	case BackendFile, BackendSQLite:
	case BackendFirestore:
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required for the firestore backend")
		}
	default:
		return nil, fmt.Errorf("invalid DEDUP_BACKEND %q: want file, sqlite or firestore", cfg.DedupBackend)
	}

	if cfg.FlipkartID == "" && len(cfg.AmazonItemIDs) == 0 && cfg.StorefrontURL == "" {
		slog.Warn("No catalog sources configured, every run will find nothing to publish")
	}

	var err error
	if cfg.PollInterval, err = getEnvAsDuration("POLL_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("invalid POLL_INTERVAL %s: must be positive", cfg.PollInterval)
	}
	if cfg.RunTimeout, err = getEnvAsDuration("RUN_TIMEOUT", 4*time.Minute); err != nil {
		return nil, err
	}

	sel, err := loadSelection()
	if err != nil {
		return nil, err
	}
	cfg.Selection = sel

	return cfg, nil
}

// loadSelection builds the selection block: defaults, then the optional YAML
// overlay, then individual environment variables. The result is validated.
func loadSelection() (Selection, error) {
	sel := DefaultSelection()

	if path := os.Getenv("SELECTION_CONFIG_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Selection{}, fmt.Errorf("read selection config: %w", err)
		}
		if err := yaml.Unmarshal(data, &sel); err != nil {
			return Selection{}, fmt.Errorf("unmarshal selection config %s: %w", path, err)
		}
		slog.Info("Loaded selection config", "path", path)
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"HEAVY_DISCOUNT_START", &sel.WindowStart},
		{"HEAVY_DISCOUNT_END", &sel.WindowEnd},
		{"MIN_DISCOUNT", &sel.Floor},
		{"DISCOUNT_STEP", &sel.Step},
	}
	for _, f := range floats {
		if v := os.Getenv(f.key); v != "" {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return Selection{}, fmt.Errorf("invalid %s %q: %w", f.key, v, err)
			}
			*f.dst = parsed
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"MIN_TOP_DEALS", &sel.Quota},
		{"MAX_PER_BATCH", &sel.BatchSize},
		{"MAX_CAPTION_ITEMS", &sel.CaptionItems},
	}
	for _, i := range ints {
		if v := os.Getenv(i.key); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return Selection{}, fmt.Errorf("invalid %s %q: %w", i.key, v, err)
			}
			*i.dst = parsed
		}
	}

	if v := os.Getenv("PRIORITY_CATEGORIES"); v != "" {
		sel.PriorityCategories = util.SplitList(v)
	}

	if err := validator.New().ValidateStruct(sel); err != nil {
		return Selection{}, fmt.Errorf("invalid selection config: %w", err)
	}
	return sel, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
