package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Input      InputConfig      `yaml:"input"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Output     OutputConfig     `yaml:"output"`
	Log        LogConfig        `yaml:"log"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

type InputConfig struct {
	Path string `yaml:"path"`
}

type PipelineConfig struct {
	// ClickActivity is the Activity Type value that marks a click event.
	ClickActivity string `yaml:"click_activity"`
	// ProductFacet is the Facet Type value whose Facet Value names a product.
	ProductFacet string `yaml:"product_facet"`
	// TimestampLayouts are tried before the built-in layouts.
	TimestampLayouts []string `yaml:"timestamp_layouts"`
}

type OutputConfig struct {
	// Dir defaults to the directory of the input file.
	Dir          string `yaml:"dir"`
	ReportPrefix string `yaml:"report_prefix"`
	ErrorsPrefix string `yaml:"errors_prefix"`
}

type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

type ClickHouseConfig struct {
	// Addr empty disables the export.
	Addr     string `yaml:"addr"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Table    string `yaml:"table"`
}

// Load reads a YAML config file. A missing file is not an error: the
// defaults describe a complete standalone run.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		// Expand environment variables
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, err
		}
	}

	// Set defaults
	if cfg.Pipeline.ClickActivity == "" {
		cfg.Pipeline.ClickActivity = "Clicked Search Result"
	}
	if cfg.Pipeline.ProductFacet == "" {
		cfg.Pipeline.ProductFacet = "Product"
	}
	if cfg.Output.ReportPrefix == "" {
		cfg.Output.ReportPrefix = "ctr_report"
	}
	if cfg.Output.ErrorsPrefix == "" {
		cfg.Output.ErrorsPrefix = "ctr_errors"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = "ctr_calculation.log"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.ClickHouse.Database == "" {
		cfg.ClickHouse.Database = "default"
	}
	if cfg.ClickHouse.Table == "" {
		cfg.ClickHouse.Table = "ctr_product_stats"
	}

	return &cfg, nil
}
