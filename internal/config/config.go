package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GlobalFlags carries the persistent command-line flags before they are
// merged with file and environment configuration.
type GlobalFlags struct {
	ConfigPath  string
	Chain       string
	RPCURL      string
	Timeout     string
	Retries     int
	SlippagePct float64
	NoJournal   bool
}

// Settings is the fully resolved runtime configuration. Precedence is
// defaults, then config file, then environment, then flags.
type Settings struct {
	Chain           string
	RPCOverrides    map[string]string
	RPCURL          string
	Timeout         time.Duration
	Retries         int
	SlippagePct     float64
	YieldTTL        time.Duration
	JournalEnabled  bool
	JournalPath     string
	JournalLockPath string
	SwapAPIBase     string
	SwapAPIKey      string
	YieldAPIBase    string
}

type fileConfig struct {
	Chain    string            `yaml:"chain"`
	Timeout  string            `yaml:"timeout"`
	Retries  *int              `yaml:"retries"`
	Slippage *float64          `yaml:"slippage_pct"`
	RPC      map[string]string `yaml:"rpc"`
	Yield    struct {
		TTL  string `yaml:"ttl"`
		Base string `yaml:"base_url"`
	} `yaml:"yield"`
	Journal struct {
		Enabled  *bool  `yaml:"enabled"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"journal"`
	Swap struct {
		Base      string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APIKeyEnv string `yaml:"api_key_env"`
	} `yaml:"swap"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.Timeout <= 0 {
		settings.Timeout = 10 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.YieldTTL <= 0 {
		settings.YieldTTL = 5 * time.Minute
	}
	return settings, nil
}

func defaultSettings() (Settings, error) {
	journalPath, lockPath, err := defaultJournalPaths()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Chain:           "base",
		RPCOverrides:    map[string]string{},
		Timeout:         10 * time.Second,
		Retries:         2,
		SlippagePct:     0.5,
		YieldTTL:        5 * time.Minute,
		JournalEnabled:  true,
		JournalPath:     journalPath,
		JournalLockPath: lockPath,
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "tidal", "config.yaml"), nil
}

func defaultJournalPaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "tidal")
	return filepath.Join(dir, "executions.db"), filepath.Join(dir, "executions.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Chain != "" {
		settings.Chain = strings.ToLower(cfg.Chain)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.Slippage != nil {
		settings.SlippagePct = *cfg.Slippage
	}
	for chain, url := range cfg.RPC {
		settings.RPCOverrides[strings.ToLower(chain)] = url
	}
	if cfg.Yield.TTL != "" {
		d, err := time.ParseDuration(cfg.Yield.TTL)
		if err != nil {
			return fmt.Errorf("config yield.ttl: %w", err)
		}
		settings.YieldTTL = d
	}
	if cfg.Yield.Base != "" {
		settings.YieldAPIBase = cfg.Yield.Base
	}
	if cfg.Journal.Enabled != nil {
		settings.JournalEnabled = *cfg.Journal.Enabled
	}
	if cfg.Journal.Path != "" {
		settings.JournalPath = cfg.Journal.Path
	}
	if cfg.Journal.LockPath != "" {
		settings.JournalLockPath = cfg.Journal.LockPath
	}
	if cfg.Swap.Base != "" {
		settings.SwapAPIBase = cfg.Swap.Base
	}
	if cfg.Swap.APIKey != "" {
		settings.SwapAPIKey = cfg.Swap.APIKey
	}
	if cfg.Swap.APIKeyEnv != "" {
		settings.SwapAPIKey = os.Getenv(cfg.Swap.APIKeyEnv)
	}
	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("TIDAL_CHAIN"); v != "" {
		settings.Chain = strings.ToLower(v)
	}
	if v := os.Getenv("TIDAL_RPC_URL"); v != "" {
		settings.RPCURL = v
	}
	if v := os.Getenv("TIDAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("TIDAL_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("TIDAL_SLIPPAGE_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			settings.SlippagePct = f
		}
	}
	if v := os.Getenv("TIDAL_YIELD_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.YieldTTL = d
		}
	}
	if v := os.Getenv("TIDAL_NO_JOURNAL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.JournalEnabled = !b
		}
	}
	if v := os.Getenv("TIDAL_JOURNAL_PATH"); v != "" {
		settings.JournalPath = v
	}
	if v := os.Getenv("TIDAL_JOURNAL_LOCK_PATH"); v != "" {
		settings.JournalLockPath = v
	}
	if v := os.Getenv("TIDAL_SWAP_API_BASE"); v != "" {
		settings.SwapAPIBase = v
	}
	if v := os.Getenv("TIDAL_SWAP_API_KEY"); v != "" {
		settings.SwapAPIKey = v
	}
	if v := os.Getenv("TIDAL_YIELD_API_BASE"); v != "" {
		settings.YieldAPIBase = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if strings.TrimSpace(flags.Chain) != "" {
		settings.Chain = strings.ToLower(strings.TrimSpace(flags.Chain))
	}
	if strings.TrimSpace(flags.RPCURL) != "" {
		settings.RPCURL = strings.TrimSpace(flags.RPCURL)
	}
	if strings.TrimSpace(flags.Timeout) != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 0 {
		settings.Retries = flags.Retries
	}
	if flags.SlippagePct > 0 {
		settings.SlippagePct = flags.SlippagePct
	}
	if flags.NoJournal {
		settings.JournalEnabled = false
	}
	return nil
}
