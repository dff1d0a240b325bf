package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	Network  MNetworkConfig `yaml:"network"`
	Stream   MStreamConfig  `yaml:"stream"`
	History  MHistoryConfig `yaml:"history"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

// MStreamConfig selects and parameterizes the tick stream backend.
// Backend is "mock" or "live".
type MStreamConfig struct {
	Backend string             `yaml:"backend"`
	Symbol  string             `yaml:"symbol"` // startup selection
	Seed    map[string]float64 `yaml:"seed"`   // optional per-symbol start prices
	Mock    MMockConfig        `yaml:"mock"`
	Live    MLiveConfig        `yaml:"live"`
}

type MMockConfig struct {
	IntervalMs int     `yaml:"interval_ms"`
	Volatility float64 `yaml:"volatility"` // bounded symmetric perturbation, e.g. 0.0018
	BasePrice  float64 `yaml:"base_price"` // fallback when no seed given
}

type MLiveConfig struct {
	URL string `yaml:"url"` // wss endpoint, already negotiated/secured
}

type MHistoryConfig struct {
	Endpoint string `yaml:"endpoint"`
	Interval string `yaml:"interval"` // provider bar interval, "1day"
	Window   int    `yaml:"window"`   // candles kept in the working set
}
