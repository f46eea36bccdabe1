package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validYAML = `
chain:
  rpc_url: https://bsc-dataseed.binance.org
  position_manager: "0x46A15B0b27311cedF172AB29E4f4766fbE7F4364"
strategy:
  owner: "0x1111111111111111111111111111111111111111"
  symbol: BNBUSDC
  base_token: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
  usdt_token: "0x55d398326f99059fF775485246999027B3197955"
  ratio_threshold: 0.05
  delta_threshold: 0.1
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	if cfg.Strategy.Symbol != "BNBUSDC" {
		t.Fatalf("expected symbol BNBUSDC, got %q", cfg.Strategy.Symbol)
	}
	if cfg.Strategy.RatioThreshold != 0.05 {
		t.Fatalf("expected ratio threshold 0.05, got %v", cfg.Strategy.RatioThreshold)
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Binance.BaseURL != "https://fapi.binance.com" {
		t.Fatalf("expected binance base url default, got %q", cfg.Binance.BaseURL)
	}
	if cfg.Binance.RecvWindowMS != 5000 {
		t.Fatalf("expected recv window default, got %d", cfg.Binance.RecvWindowMS)
	}
	if cfg.Strategy.PollInterval != 90*time.Second {
		t.Fatalf("expected poll interval default, got %v", cfg.Strategy.PollInterval)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("expected log level default, got %q", cfg.Log.Level)
	}
	if cfg.State.SQLitePath == "" {
		t.Fatalf("expected sqlite path default")
	}
}

func TestValidateRejectsBadAddress(t *testing.T) {
	bad := `
chain:
  rpc_url: https://bsc-dataseed.binance.org
  position_manager: "not-an-address"
strategy:
  owner: "0x1111111111111111111111111111111111111111"
  symbol: BNBUSDC
  base_token: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
  usdt_token: "0x55d398326f99059fF775485246999027B3197955"
  delta_threshold: 0.1
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected error for invalid position manager address")
	}
}

func TestValidateRejectsNonPositiveStep(t *testing.T) {
	bad := `
chain:
  rpc_url: https://bsc-dataseed.binance.org
  position_manager: "0x46A15B0b27311cedF172AB29E4f4766fbE7F4364"
strategy:
  owner: "0x1111111111111111111111111111111111111111"
  symbol: BNBUSDC
  base_token: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"
  usdt_token: "0x55d398326f99059fF775485246999027B3197955"
  delta_threshold: 0
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected error for delta_threshold <= 0")
	}
}

func TestValidateRejectsSameTokens(t *testing.T) {
	bad := `
chain:
  rpc_url: https://bsc-dataseed.binance.org
  position_manager: "0x46A15B0b27311cedF172AB29E4f4766fbE7F4364"
strategy:
  owner: "0x1111111111111111111111111111111111111111"
  symbol: BNBUSDC
  base_token: "0x55d398326f99059fF775485246999027B3197955"
  usdt_token: "0x55d398326f99059ff775485246999027b3197955"
  delta_threshold: 0.1
`
	if _, err := Load(writeConfig(t, bad)); err == nil {
		t.Fatalf("expected error for identical base and usdt tokens")
	}
}

func TestLoadMissingPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
