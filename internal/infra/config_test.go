package infra

import (
	"os"
	"path/filepath"
	"testing"

	"trading_go/internal/domain"
)

const validYAML = `
app:
  name: "TradingDesk"
server:
  addr: ":8080"
feed:
  ws_url: "wss://feed.example.in/marketdata"
  symbols: ["NIFTY18000CE"]
desk:
  capital: "1000000"
  inbox_size: 64
instruments:
  - symbol: "NIFTY18000CE"
    kind: "OPTION"
    lot_size: 75
    option:
      strike: "18000"
      type: "CE"
  - symbol: "RELIANCE"
    kind: "EQUITY"
    lot_size: 1
logging:
  level: "debug"
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Desk.InboxSize != 64 {
		t.Errorf("inbox size = %d, want 64", cfg.Desk.InboxSize)
	}
	if len(cfg.Instruments) != 2 {
		t.Fatalf("instruments = %d, want 2", len(cfg.Instruments))
	}
	opt := cfg.Instruments[0]
	if opt.Kind != domain.KindOption || opt.Option == nil || opt.Option.Type != domain.OptionCall {
		t.Errorf("option instrument parsed wrong: %+v", opt)
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("DESK_SERVER_ADDR", ":9999")

	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("addr = %s, want :9999 from env", cfg.Server.Addr)
	}
}

func TestConfigValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad ws url", func(c *Config) { c.Feed.WSURL = "http://not-ws" }},
		{"missing addr", func(c *Config) { c.Server.Addr = "" }},
		{"zero inbox", func(c *Config) { c.Desk.InboxSize = 0 }},
		{"no instruments", func(c *Config) { c.Instruments = nil }},
		{"unknown kind", func(c *Config) { c.Instruments[0].Kind = "FUTURE" }},
		{"option without spec", func(c *Config) { c.Instruments[0].Option = nil }},
		{"equity with option spec", func(c *Config) {
			c.Instruments[1].Option = &domain.OptionSpec{Type: domain.OptionPut}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, validYAML))
			if err != nil {
				t.Fatalf("baseline config invalid: %v", err)
			}
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
