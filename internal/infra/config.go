package infra

import (
	"fmt"
	"os"

	"trading_go/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Sensitive values may be overridden
// through environment variables after loading.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Feed struct {
		WSURL   string   `yaml:"ws_url"`
		Symbols []string `yaml:"symbols"`
	} `yaml:"feed"`

	Desk struct {
		Capital   decimal.Decimal `yaml:"capital"`
		InboxSize int             `yaml:"inbox_size"`
	} `yaml:"desk"`

	Instruments []domain.Instrument `yaml:"instruments"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Feed.WSURL != "" && !hasPrefix(c.Feed.WSURL, "ws://") && !hasPrefix(c.Feed.WSURL, "wss://") {
		return fmt.Errorf("invalid feed WS URL: %s", c.Feed.WSURL)
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}

	if c.Desk.Capital.IsNegative() {
		return fmt.Errorf("desk capital must not be negative")
	}
	if c.Desk.InboxSize <= 0 {
		return fmt.Errorf("desk inbox size must be positive")
	}

	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument is required")
	}
	for _, inst := range c.Instruments {
		if inst.Symbol == "" {
			return fmt.Errorf("instrument symbol is required")
		}
		switch inst.Kind {
		case domain.KindEquity, domain.KindIndex, domain.KindOption:
		default:
			return fmt.Errorf("instrument %s: unknown kind %q", inst.Symbol, inst.Kind)
		}
		if inst.LotSize < 0 {
			return fmt.Errorf("instrument %s: lot size must not be negative", inst.Symbol)
		}
		if inst.Kind == domain.KindOption {
			if inst.Option == nil {
				return fmt.Errorf("instrument %s: option metadata is required", inst.Symbol)
			}
			if inst.Option.Type != domain.OptionCall && inst.Option.Type != domain.OptionPut {
				return fmt.Errorf("instrument %s: option type must be CE or PE", inst.Symbol)
			}
		} else if inst.Option != nil {
			return fmt.Errorf("instrument %s: option metadata only valid for options", inst.Symbol)
		}
	}

	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies environment variable overrides when present.
func overrideWithEnv(cfg *Config) {
	if url := os.Getenv("DESK_FEED_WS_URL"); url != "" {
		cfg.Feed.WSURL = url
	}
	if addr := os.Getenv("DESK_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("DESK_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
