package ops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/joho/godotenv"

	"tradingdesk/internal/broker"
	"tradingdesk/internal/journal"
	"tradingdesk/internal/risk"
	"tradingdesk/internal/tape"
	"tradingdesk/pkg/exception"
	"tradingdesk/pkg/ledger"
	"tradingdesk/pkg/market"
	"tradingdesk/pkg/sdk"
)

const (
	EnvAlgorithmsDir = "DESK_ALGORITHMS_DIR"
	EnvFeedURL       = "DESK_FEED_URL"
	EnvAPIAddr       = "DESK_API_ADDR"
	EnvJournalDSN    = "DESK_JOURNAL_DSN"
	EnvPyroscopeAddr = "DESK_PYROSCOPE_ADDR"
	EnvTapeDir       = "DESK_TAPE_DIR"
)

const (
	defaultAlgorithmsDir = "algorithms"
	defaultAPIAddr       = ":8080"
	defaultAppName       = "tradingdesk"
	defaultQueueCapacity = 1024
)

// Duration accepts "250ms" style strings or integer nanoseconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		v, err := time.ParseDuration(unquoted)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration %s: %w", s, err)
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Duration(d).String())), nil
}

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	AlgorithmsDir string          `json:"algorithmsDir"`
	Feed          FeedConfig      `json:"feed"`
	API           APIConfig       `json:"api"`
	Journal       JournalConfig   `json:"journal"`
	Pyroscope     PyroscopeConfig `json:"pyroscope"`
	Tape          TapeConfig      `json:"tape"`
	Risk          RiskConfig      `json:"risk"`
	QueueCapacity int             `json:"queueCapacity"`
	HistoryLimit  int             `json:"historyLimit"`
	Sessions      []SessionConfig `json:"sessions"`
}

type FeedConfig struct {
	URL         string   `json:"url"`
	ReadTimeout Duration `json:"readTimeout"`
	MaxAttempts int      `json:"maxAttempts"`
}

type APIConfig struct {
	Addr string `json:"addr"`
}

// JournalConfig enables the event journal when DSN or Host is set.
type JournalConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"sslMode"`
}

func (c JournalConfig) Enabled() bool {
	return c.DSN != "" || c.Host != ""
}

func (c JournalConfig) Option() journal.Option {
	return journal.Option{
		ConnString: c.DSN,
		Host:       c.Host,
		Port:       c.Port,
		User:       c.User,
		Password:   c.Password,
		Database:   c.Database,
		SSLMode:    c.SSLMode,
	}
}

type PyroscopeConfig struct {
	Addr    string `json:"addr"`
	AppName string `json:"appName"`
}

// TapeConfig records every feed tick for later replay when Dir is set.
type TapeConfig struct {
	Dir           string   `json:"dir"`
	Prefix        string   `json:"prefix"`
	FlushInterval Duration `json:"flushInterval"`
}

func (c TapeConfig) Enabled() bool {
	return c.Dir != ""
}

func (c TapeConfig) Config() tape.Config {
	cfg := tape.DefaultConfig(c.Dir)
	if c.Prefix != "" {
		cfg.Prefix = c.Prefix
	}
	cfg.FlushInterval = c.FlushInterval.Std()
	return cfg
}

// RiskConfig is risk.Config with a readable rate window.
type RiskConfig struct {
	KillSwitch           bool         `json:"killSwitch"`
	MaxOrderPieces       uint64       `json:"maxOrderPieces"`
	MaxOrderNotional     market.Price `json:"maxOrderNotional"`
	MaxOpenOrders        int          `json:"maxOpenOrders"`
	MaxOpenPositions     int          `json:"maxOpenPositions"`
	OrderRateLimit       int          `json:"orderRateLimit"`
	OrderRateWindow      Duration     `json:"orderRateWindow"`
	MaxPriceDeviationBps int64        `json:"maxPriceDeviationBps"`
}

func (c RiskConfig) Config() risk.Config {
	return risk.Config{
		KillSwitch:           c.KillSwitch,
		MaxOrderPieces:       c.MaxOrderPieces,
		MaxOrderNotional:     c.MaxOrderNotional,
		MaxOpenOrders:        c.MaxOpenOrders,
		MaxOpenPositions:     c.MaxOpenPositions,
		OrderRateLimit:       c.OrderRateLimit,
		OrderRateWindow:      c.OrderRateWindow.Std(),
		MaxPriceDeviationBps: c.MaxPriceDeviationBps,
	}
}

// SessionConfig binds an algorithm to a symbol and a paper deposit.
type SessionConfig struct {
	Algorithm string          `json:"algorithm"`
	Symbol    string          `json:"symbol"`
	Kind      string          `json:"kind"`
	Exchange  string          `json:"exchange"`
	TimeStep  Duration        `json:"timeStep"`
	Deposit   broker.Snapshot `json:"deposit"`
}

// Session is a resolved SessionConfig.
type Session struct {
	Algorithm  string
	Derivative sdk.Derivative
	TimeStep   time.Duration
	Deposit    *ledger.Deposit
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	AlgorithmsDir string
	Feed          FeedConfig
	API           APIConfig
	Journal       JournalConfig
	Pyroscope     PyroscopeConfig
	Tape          TapeConfig
	Risk          risk.Config
	QueueCapacity int
	HistoryLimit  int
	Sessions      []Session
}

// Load reads envFile when it exists, then the JSON config at path, then
// applies environment overrides. An empty path skips the file.
func Load(path, envFile string) (Loaded, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Loaded{}, fmt.Errorf("load env %s: %w", envFile, err)
		}
	}

	var cfg FileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Loaded{}, err
		}
		if err := sonic.ConfigStd.Unmarshal(data, &cfg); err != nil {
			return Loaded{}, fmt.Errorf("%w: %s: %w", exception.ErrConfigInvalid, path, err)
		}
	}
	applyEnv(&cfg)
	return resolve(cfg)
}

func applyEnv(cfg *FileConfig) {
	override(&cfg.AlgorithmsDir, EnvAlgorithmsDir)
	override(&cfg.Feed.URL, EnvFeedURL)
	override(&cfg.API.Addr, EnvAPIAddr)
	override(&cfg.Journal.DSN, EnvJournalDSN)
	override(&cfg.Pyroscope.Addr, EnvPyroscopeAddr)
	override(&cfg.Tape.Dir, EnvTapeDir)
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func resolve(cfg FileConfig) (Loaded, error) {
	if cfg.AlgorithmsDir == "" {
		cfg.AlgorithmsDir = defaultAlgorithmsDir
	}
	if cfg.API.Addr == "" {
		cfg.API.Addr = defaultAPIAddr
	}
	if cfg.Pyroscope.AppName == "" {
		cfg.Pyroscope.AppName = defaultAppName
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = defaultQueueCapacity
	}
	if cfg.Tape.FlushInterval < 0 {
		return Loaded{}, fmt.Errorf("%w: tape.flushInterval must be >= 0", exception.ErrConfigInvalid)
	}
	if cfg.HistoryLimit < 0 {
		return Loaded{}, fmt.Errorf("%w: historyLimit must be >= 0", exception.ErrConfigInvalid)
	}

	sessions := make([]Session, 0, len(cfg.Sessions))
	for i, sc := range cfg.Sessions {
		s, err := resolveSession(sc)
		if err != nil {
			return Loaded{}, fmt.Errorf("%w: sessions[%d]: %w", exception.ErrConfigInvalid, i, err)
		}
		sessions = append(sessions, s)
	}

	return Loaded{
		AlgorithmsDir: cfg.AlgorithmsDir,
		Feed:          cfg.Feed,
		API:           cfg.API,
		Journal:       cfg.Journal,
		Pyroscope:     cfg.Pyroscope,
		Tape:          cfg.Tape,
		Risk:          cfg.Risk.Config(),
		QueueCapacity: cfg.QueueCapacity,
		HistoryLimit:  cfg.HistoryLimit,
		Sessions:      sessions,
	}, nil
}

func resolveSession(sc SessionConfig) (Session, error) {
	if sc.Algorithm == "" {
		return Session{}, fmt.Errorf("algorithm is empty")
	}
	if sc.Symbol == "" {
		return Session{}, fmt.Errorf("symbol is empty")
	}
	if sc.TimeStep <= 0 {
		return Session{}, fmt.Errorf("timeStep must be > 0")
	}
	kind, ok := derivativeKinds[strings.ToLower(sc.Kind)]
	if !ok {
		return Session{}, fmt.Errorf("unknown derivative kind %q", sc.Kind)
	}
	if sc.Deposit.ID == "" {
		sc.Deposit.ID = sc.Algorithm + "-" + sc.Symbol
	}
	deposit, err := sc.Deposit.Deposit()
	if err != nil {
		return Session{}, err
	}
	return Session{
		Algorithm: sc.Algorithm,
		Derivative: sdk.Derivative{
			Symbol:   sc.Symbol,
			Kind:     kind,
			Exchange: ledger.StockExchange(sc.Exchange),
		},
		TimeStep: sc.TimeStep.Std(),
		Deposit:  deposit,
	}, nil
}

var derivativeKinds = map[string]sdk.DerivativeKind{
	"":       sdk.DerivativeStock,
	"stock":  sdk.DerivativeStock,
	"etf":    sdk.DerivativeETF,
	"future": sdk.DerivativeFuture,
	"option": sdk.DerivativeOption,
	"cfd":    sdk.DerivativeCFD,
	"crypto": sdk.DerivativeCrypto,
}
