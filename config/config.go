package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de fadebot.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	Stats    StatsConfig    `yaml:"stats"`
	Fees     FeesConfig     `yaml:"fees"`
	API      APIConfig      `yaml:"api"`
	Paper    PaperConfig    `yaml:"paper"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla el grid search y el simulador.
type BacktestConfig struct {
	Grid             GridConfig `yaml:"grid"`
	MinTrades        int        `yaml:"min_trades"`
	Workers          int        `yaml:"workers"`   // 0 = GOMAXPROCS
	MaxCells         int        `yaml:"max_cells"` // tope del producto cartesiano
	Contracts        int        `yaml:"contracts"`
	HoldToSettlement bool       `yaml:"hold_to_settlement"`
	Top              int        `yaml:"top"` // estrategias a mostrar en el resumen
}

// GridConfig son las dimensiones del barrido. Vacío = grid por defecto.
type GridConfig struct {
	PriceRanges    []RangeConfig `yaml:"price_ranges"`
	MoveThresholds []float64     `yaml:"move_thresholds"`
	HoldPeriods    []int         `yaml:"hold_periods"`
}

// RangeConfig es un rango de precio en centavos.
type RangeConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// StatsConfig controla el motor estadístico y la corrección múltiple.
type StatsConfig struct {
	Alpha            float64 `yaml:"alpha"`
	Confidence       float64 `yaml:"confidence"`
	BootstrapSamples int     `yaml:"bootstrap_samples"`
	SessionsPerYear  float64 `yaml:"sessions_per_year"`
	Seed             uint64  `yaml:"seed"`
	CorrectionFamily string  `yaml:"correction_family"` // attempted | evaluated
}

// FeesConfig es el schedule de fees del exchange.
type FeesConfig struct {
	TakerRate float64 `yaml:"taker_rate"`
	MakerRate float64 `yaml:"maker_rate"`
}

// APIConfig contiene los base URLs y límites de las APIs.
type APIConfig struct {
	KalshiBase    string  `yaml:"kalshi_base"`
	PBPBase       string  `yaml:"pbp_base"`
	KalshiRatePS  float64 `yaml:"kalshi_requests_per_sec"`
	PBPRatePS     float64 `yaml:"pbp_requests_per_sec"`
	UseOrderBooks bool    `yaml:"use_orderbooks"` // marcar al mid del libro en paper
}

// PaperConfig controla el loop de paper trading.
type PaperConfig struct {
	IntervalSeconds   int          `yaml:"interval_seconds"`
	LookbackMinutes   int          `yaml:"lookback_minutes"`
	Contracts         int          `yaml:"contracts"`
	TopStrategies     int          `yaml:"top_strategies"`
	RequireBonferroni bool         `yaml:"require_bonferroni"`
	RequireConsistent bool         `yaml:"require_consistent"`
	MinSharpe         float64      `yaml:"min_sharpe"`
	ModelPath         string       `yaml:"model_path"` // opcional: añade una señal de modelo
	EntryThreshold    float64      `yaml:"entry_threshold"`
	ModelHold         int          `yaml:"model_hold"`
	HoldToSettlement  bool         `yaml:"hold_to_settlement"`
	StopFile          string       `yaml:"stop_file"`
	Games             []GameConfig `yaml:"games"`
}

// GameConfig une un partido con su contrato.
type GameConfig struct {
	GameID string `yaml:"game_id"`
	Ticker string `yaml:"ticker"`
	Side   string `yaml:"side"` // home | away
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// Default devuelve la configuración sin archivo, con env overrides aplicados.
func Default() *Config {
	var cfg Config
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	return &cfg
}

// PaperInterval devuelve el intervalo del loop de paper como time.Duration.
func (c *Config) PaperInterval() time.Duration {
	return time.Duration(c.Paper.IntervalSeconds) * time.Second
}

// PaperLookback devuelve la ventana de velas que pide cada ciclo.
func (c *Config) PaperLookback() time.Duration {
	return time.Duration(c.Paper.LookbackMinutes) * time.Minute
}

// Validate rechaza valores fuera de dominio que los defaults no corrigen.
func (c *Config) Validate() error {
	switch c.Stats.CorrectionFamily {
	case "attempted", "evaluated":
	default:
		return fmt.Errorf("stats.correction_family %q: want attempted|evaluated", c.Stats.CorrectionFamily)
	}
	if c.Stats.Alpha <= 0 || c.Stats.Alpha >= 1 {
		return fmt.Errorf("stats.alpha %.3f outside (0, 1)", c.Stats.Alpha)
	}
	if c.Stats.Confidence <= 0 || c.Stats.Confidence >= 1 {
		return fmt.Errorf("stats.confidence %.3f outside (0, 1)", c.Stats.Confidence)
	}
	if c.Paper.EntryThreshold <= 0 || c.Paper.EntryThreshold > 1 {
		return fmt.Errorf("paper.entry_threshold %.3f outside (0, 1]", c.Paper.EntryThreshold)
	}
	for _, r := range c.Backtest.Grid.PriceRanges {
		if r.Min >= r.Max {
			return fmt.Errorf("backtest.grid.price_ranges: min %.0f >= max %.0f", r.Min, r.Max)
		}
	}
	for _, g := range c.Paper.Games {
		if g.GameID == "" || g.Ticker == "" {
			return fmt.Errorf("paper.games: game_id and ticker are required")
		}
		if g.Side != "" && g.Side != "home" && g.Side != "away" {
			return fmt.Errorf("paper.games %s: side %q: want home|away", g.GameID, g.Side)
		}
	}
	return nil
}

// Snapshot serializa la configuración efectiva, para guardarla junto a un run.
func (c *Config) Snapshot() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("config.Snapshot: %w", err)
	}
	return string(out), nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("FADEBOT_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("KALSHI_BASE_URL"); v != "" {
		cfg.API.KalshiBase = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Backtest.MinTrades <= 0 {
		cfg.Backtest.MinTrades = 10
	}
	if cfg.Backtest.MaxCells <= 0 {
		cfg.Backtest.MaxCells = 5000
	}
	if cfg.Backtest.Contracts <= 0 {
		cfg.Backtest.Contracts = 100
	}
	if cfg.Backtest.Top <= 0 {
		cfg.Backtest.Top = 10
	}
	if cfg.Stats.Alpha == 0 {
		cfg.Stats.Alpha = 0.05
	}
	if cfg.Stats.Confidence == 0 {
		cfg.Stats.Confidence = 0.95
	}
	if cfg.Stats.BootstrapSamples <= 0 {
		cfg.Stats.BootstrapSamples = 1000
	}
	if cfg.Stats.SessionsPerYear <= 0 {
		cfg.Stats.SessionsPerYear = 200
	}
	if cfg.Stats.Seed == 0 {
		cfg.Stats.Seed = 1
	}
	if cfg.Stats.CorrectionFamily == "" {
		cfg.Stats.CorrectionFamily = "attempted"
	}
	if cfg.Fees.TakerRate <= 0 {
		cfg.Fees.TakerRate = 0.07
	}
	if cfg.Fees.MakerRate <= 0 {
		cfg.Fees.MakerRate = 0.0175
	}
	if cfg.API.KalshiBase == "" {
		cfg.API.KalshiBase = "https://api.elections.kalshi.com/trade-api/v2"
	}
	if cfg.API.PBPBase == "" {
		cfg.API.PBPBase = "https://cdn.nba.com/static/json/liveData"
	}
	if cfg.Paper.IntervalSeconds <= 0 {
		cfg.Paper.IntervalSeconds = 60
	}
	if cfg.Paper.LookbackMinutes <= 0 {
		cfg.Paper.LookbackMinutes = 240
	}
	if cfg.Paper.Contracts <= 0 {
		cfg.Paper.Contracts = 100
	}
	if cfg.Paper.TopStrategies <= 0 {
		cfg.Paper.TopStrategies = 5
	}
	if cfg.Paper.EntryThreshold == 0 {
		cfg.Paper.EntryThreshold = 0.60
	}
	if cfg.Paper.ModelHold <= 0 {
		cfg.Paper.ModelHold = 5
	}
	if cfg.Paper.StopFile == "" {
		cfg.Paper.StopFile = "STOP"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "fadebot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
