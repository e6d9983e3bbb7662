package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del backtester.
type Config struct {
	Backtest BacktestConfig `yaml:"backtest"`
	API      APIConfig      `yaml:"api"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// BacktestConfig controla el comportamiento de la simulación.
type BacktestConfig struct {
	FeeRate         float64 `yaml:"fee_rate"`          // comisión por notional (entrada y cada salida)
	ListPageSize    int     `yaml:"list_page_size"`    // tamaño de página del listado Gamma
	MaxMarketsFetch int     `yaml:"max_markets_fetch"` // tope de mercados a paginar en modo filtro
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controla dónde se persiste el historial de runs.
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

	return &cfg, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("CLOB_BASE"); v != "" {
		cfg.API.CLOBBase = v
	}
	if v := os.Getenv("GAMMA_BASE"); v != "" {
		cfg.API.GammaBase = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Backtest.FeeRate <= 0 {
		cfg.Backtest.FeeRate = 0.02 // 2% por lado, conservador
	}
	if cfg.Backtest.ListPageSize <= 0 {
		cfg.Backtest.ListPageSize = 100
	}
	if cfg.Backtest.MaxMarketsFetch <= 0 {
		cfg.Backtest.MaxMarketsFetch = 500
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polysim.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
