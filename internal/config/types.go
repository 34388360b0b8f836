package config

// Config is the top-level configuration structure parsed from gitsift YAML.
type Config struct {
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Extensions ExtensionsConfig `yaml:"extensions"`
	History    HistoryConfig    `yaml:"history"`
	Serve      ServeConfig      `yaml:"serve"`
}

// PipelineConfig tunes the classification core.
type PipelineConfig struct {
	MaxLineLength int    `yaml:"max_line_length"`
	Sentinel      string `yaml:"sentinel"`
	Verbose       bool   `yaml:"verbose"`
}

// ExtensionsConfig controls which registered extensions participate.
type ExtensionsConfig struct {
	Disabled []string `yaml:"disabled"`
}

// HistoryConfig controls persistence of completed invocations.
type HistoryConfig struct {
	DBPath    string `yaml:"db_path"`
	ExportDir string `yaml:"export_dir"`
}

// ServeConfig controls the history API server.
type ServeConfig struct {
	Addr string `yaml:"addr"`
}
