package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Portal   PortalConfig
	Browser  BrowserConfig
	Debug    DebugConfig
	Alert    AlertConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Server   ServerConfig
	Logging  LoggingConfig
}

type PortalConfig struct {
	StartURL       string
	ServiceLabel   string
	SubmitSelector string
	HeaderSelector string
	SiteName       string
	TargetCount    int
	CheckInterval  time.Duration
}

type BrowserConfig struct {
	Headless        bool
	Timeout         time.Duration
	UserAgent       string
	AcceptLanguage  string
	TimezoneID      string
	Locale          string
	ProxyServer     string
	InstallBrowsers bool
}

type DebugConfig struct {
	Enabled bool
	Dir     string
}

type AlertConfig struct {
	Title          string
	EnableToast    bool
	EnableSound    bool
	CustomSound    string
	FallbackSound  string
	EnableTelegram bool
	TelegramToken  string
	TelegramChatID string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Stream   string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int
}

type ServerConfig struct {
	// Addr of the status server. Empty disables it.
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

var (
	ErrMissingStartURL     = errors.New("START_URL is required")
	ErrMissingServiceLabel = errors.New("SERVICE_LABEL is required")
)

// Load reads the configuration from the environment. When envFile is set
// it is loaded first; variables already in the environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		Portal: PortalConfig{
			StartURL:       getEnvOrDefault("START_URL", "https://tevis.ekom21.de/dar/select2?md=5"),
			ServiceLabel:   getEnvOrDefault("SERVICE_LABEL", "Erstzulassung (eines Gebrauchtfahrzeuges aus dem Ausland)"),
			SubmitSelector: getEnvOrDefault("SUBMIT_SELECTOR", "#WeiterButton"),
			HeaderSelector: getEnvOrDefault("HEADER_SELECTOR", "h3.ui-accordion-header"),
			SiteName:       getEnvOrDefault("SITE_NAME", "ladadi"),
			TargetCount:    getIntOrDefault("TARGET_COUNT", 1),
			CheckInterval:  getDurationOrDefault("CHECK_INTERVAL", 10*time.Second),
		},
		Browser: BrowserConfig{
			Headless:        getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:         getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			UserAgent:       getEnvOrDefault("BROWSER_USER_AGENT", ""),
			AcceptLanguage:  getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "de-DE,de;q=0.9,en;q=0.8"),
			TimezoneID:      getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Berlin"),
			Locale:          getEnvOrDefault("BROWSER_LOCALE", "de-DE"),
			ProxyServer:     getEnvOrDefault("BROWSER_PROXY", ""),
			InstallBrowsers: getBoolOrDefault("BROWSER_INSTALL", false),
		},
		Debug: DebugConfig{
			Enabled: getBoolOrDefault("DEBUG", true),
			Dir:     getEnvOrDefault("DEBUG_DIR", "."),
		},
		Alert: AlertConfig{
			Title:          getEnvOrDefault("ALERT_TITLE", "LaDaDi: Termin frei!"),
			EnableToast:    getBoolOrDefault("ENABLE_TOAST", true),
			EnableSound:    getBoolOrDefault("ENABLE_SOUND", true),
			CustomSound:    getEnvOrDefault("CUSTOM_SOUND", "alert.wav"),
			FallbackSound:  getEnvOrDefault("FALLBACK_SOUND", "_alert_fallback.wav"),
			EnableTelegram: getBoolOrDefault("ENABLE_TELEGRAM", false),
			TelegramToken:  getEnvOrDefault("TELEGRAM_BOT_TOKEN", ""),
			TelegramChatID: getEnvOrDefault("TELEGRAM_CHAT_ID", ""),
		},
		Redis: RedisConfig{
			Enabled:  getBoolOrDefault("ENABLE_REDIS_STREAM", false),
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
			Stream:   getEnvOrDefault("REDIS_STREAM", "stream:slot_alerts"),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("HISTORY_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			Name:     getEnvOrDefault("DB_NAME", "termin_watch"),
			MaxConns: getIntOrDefault("DB_MAX_CONNS", 4),
		},
		Server: ServerConfig{
			Addr:            getEnvOrDefault("STATUS_ADDR", ""),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Portal.StartURL == "" {
		return ErrMissingStartURL
	}
	if u, err := url.Parse(c.Portal.StartURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("START_URL is not an absolute URL: %q", c.Portal.StartURL)
	}

	if strings.TrimSpace(c.Portal.ServiceLabel) == "" {
		return ErrMissingServiceLabel
	}

	if c.Portal.TargetCount < 1 {
		return fmt.Errorf("TARGET_COUNT must be at least 1")
	}

	if c.Portal.CheckInterval < time.Second {
		return fmt.Errorf("CHECK_INTERVAL must be at least 1s")
	}

	if c.Database.Enabled && c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required when HISTORY_ENABLED is set")
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Logging.Format)
	}

	return nil
}

// Warnings lists settings that are accepted but will not behave as the
// operator likely expects.
func (c *Config) Warnings() []string {
	var out []string
	if c.Alert.EnableTelegram && (c.Alert.TelegramToken == "" || c.Alert.TelegramChatID == "") {
		out = append(out, "ENABLE_TELEGRAM is set without TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID, telegram alerts are skipped")
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationOrDefault accepts Go durations ("10s") and plain seconds ("10").
func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.ParseFloat(value, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return defaultValue
}
