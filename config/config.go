package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Tracker Tracker `yaml:"tracker"`
	Trading Trading `yaml:"trading"`
	API     API     `yaml:"api"`
	Storage Storage `yaml:"storage"`
	Notify  Notify  `yaml:"notify"`
	Log     Log     `yaml:"log"`
}

// Tracker controla el scheduler y el ciclo de vida de los partidos.
type Tracker struct {
	BaseTickMillis           int `yaml:"base_tick_ms"`             // tick base del scheduler
	DiscoveryIntervalMinutes int `yaml:"discovery_interval_mins"`  // cadencia del discovery
	FinishedCooldownMinutes  int `yaml:"finished_cooldown_mins"`   // retención tras Finished (correcciones tardías)
	DiscoveryAlertMinutes    int `yaml:"discovery_alert_mins"`     // minutos sin discovery antes de alertar
	SnapshotFlushSeconds     int `yaml:"snapshot_flush_seconds"`   // periodo del flush de persistencia
}

// Trading controla sizing, cooldowns y reglas de salida.
// Las constantes del escenario lead-extension son defaults configurables,
// no invariantes.
type Trading struct {
	OrderSizeUSD        float64    `yaml:"order_size_usd"`        // tamaño de una apertura fresca
	GoalCooldownSeconds int        `yaml:"goal_cooldown_seconds"` // supresión tras un gol por partido
	PartialProfitPct    float64    `yaml:"partial_profit_pct"`    // umbral de profit para venta parcial en lead-extension
	PartialSellFraction float64    `yaml:"partial_sell_fraction"` // fracción vendida al superar el umbral
	ReAddFactor         float64    `yaml:"readd_factor"`          // tamaño de re-añadido relativo a una apertura fresca
	StopLossPct         float64    `yaml:"stop_loss_pct"`         // pérdida que fuerza liquidación total (negativo)
	ExitTiers           []ExitTier `yaml:"exit_tiers"`            // salidas graduadas, orden ascendente
	ExecTimeoutSeconds  int        `yaml:"exec_timeout_seconds"`  // timeout por orden individual
	MaxConcurrentOrders int        `yaml:"max_concurrent_orders"` // dispatch concurrente máximo por batch
}

// ExitTier es un umbral de salida graduada en el YAML.
type ExitTier struct {
	ProfitPct    float64 `yaml:"profit_pct"`
	SellFraction float64 `yaml:"sell_fraction"`
}

// API contiene los base URLs de los colaboradores externos.
type API struct {
	SportsBase string `yaml:"sports_base"`
	CLOBBase   string `yaml:"clob_base"`
	GammaBase  string `yaml:"gamma_base"`
}

// Storage controla dónde se persiste el snapshot de estado.
type Storage struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// Notify controla el canal de notificaciones opcional.
// El token y el chat id vienen SIEMPRE del entorno, nunca del YAML.
type Notify struct {
	TelegramToken  string `yaml:"-"`
	TelegramChatID int64  `yaml:"-"`
}

// Log controla el formato y nivel de logging.
type Log struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del entorno sobreescriben los del YAML para las keys que correspondan.
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

	return &cfg, nil
}

// Default devuelve una configuración con todos los defaults aplicados,
// sin leer archivo. Útil en tests.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// BaseTick devuelve el tick base del scheduler como time.Duration.
func (c *Config) BaseTick() time.Duration {
	return time.Duration(c.Tracker.BaseTickMillis) * time.Millisecond
}

// DiscoveryInterval devuelve la cadencia del discovery.
func (c *Config) DiscoveryInterval() time.Duration {
	return time.Duration(c.Tracker.DiscoveryIntervalMinutes) * time.Minute
}

// FinishedCooldown devuelve la retención de un partido tras Finished.
func (c *Config) FinishedCooldown() time.Duration {
	return time.Duration(c.Tracker.FinishedCooldownMinutes) * time.Minute
}

// DiscoveryAlert devuelve cuánto puede fallar el discovery antes de alertar.
func (c *Config) DiscoveryAlert() time.Duration {
	return time.Duration(c.Tracker.DiscoveryAlertMinutes) * time.Minute
}

// GoalCooldown devuelve la ventana de supresión tras un gol.
func (c *Config) GoalCooldown() time.Duration {
	return time.Duration(c.Trading.GoalCooldownSeconds) * time.Second
}

// ExecTimeout devuelve el timeout por orden individual.
func (c *Config) ExecTimeout() time.Duration {
	return time.Duration(c.Trading.ExecTimeoutSeconds) * time.Second
}

// SnapshotFlushPeriod devuelve el periodo del flush de persistencia.
func (c *Config) SnapshotFlushPeriod() time.Duration {
	return time.Duration(c.Tracker.SnapshotFlushSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		var id int64
		if _, err := fmt.Sscanf(v, "%d", &id); err == nil {
			cfg.Notify.TelegramChatID = id
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Tracker.BaseTickMillis <= 0 {
		cfg.Tracker.BaseTickMillis = 1000
	}
	if cfg.Tracker.DiscoveryIntervalMinutes <= 0 {
		cfg.Tracker.DiscoveryIntervalMinutes = 5
	}
	if cfg.Tracker.FinishedCooldownMinutes <= 0 {
		cfg.Tracker.FinishedCooldownMinutes = 5
	}
	if cfg.Tracker.DiscoveryAlertMinutes <= 0 {
		cfg.Tracker.DiscoveryAlertMinutes = 15
	}
	if cfg.Tracker.SnapshotFlushSeconds <= 0 {
		cfg.Tracker.SnapshotFlushSeconds = 2
	}
	if cfg.Trading.OrderSizeUSD <= 0 {
		cfg.Trading.OrderSizeUSD = 10
	}
	if cfg.Trading.GoalCooldownSeconds <= 0 {
		cfg.Trading.GoalCooldownSeconds = 5
	}
	if cfg.Trading.PartialProfitPct <= 0 {
		cfg.Trading.PartialProfitPct = 0.20
	}
	if cfg.Trading.PartialSellFraction <= 0 {
		cfg.Trading.PartialSellFraction = 0.30
	}
	if cfg.Trading.ReAddFactor <= 0 {
		cfg.Trading.ReAddFactor = 0.50
	}
	if cfg.Trading.StopLossPct >= 0 {
		cfg.Trading.StopLossPct = -0.20
	}
	if len(cfg.Trading.ExitTiers) == 0 {
		cfg.Trading.ExitTiers = []ExitTier{
			{ProfitPct: 0.50, SellFraction: 0.25},
			{ProfitPct: 1.00, SellFraction: 0.35},
			{ProfitPct: 2.00, SellFraction: 0.40},
		}
	}
	if cfg.Trading.ExecTimeoutSeconds <= 0 {
		cfg.Trading.ExecTimeoutSeconds = 5
	}
	if cfg.Trading.MaxConcurrentOrders <= 0 {
		cfg.Trading.MaxConcurrentOrders = 8
	}
	if cfg.API.SportsBase == "" {
		cfg.API.SportsBase = "https://api.football-data.org/v4"
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "goalbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
