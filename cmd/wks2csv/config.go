package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// config holds defaults read from --config. Flags given on the command line
// take precedence.
type config struct {
	Dialect        string  `yaml:"dialect"`
	Codepage       string  `yaml:"codepage"`
	OutputEncoding string  `yaml:"outputencoding"`
	Delimiter      string  `yaml:"delimiter"`
	LineTerminator string  `yaml:"lineterminator"`
	Quoting        string  `yaml:"quoting"`
	FloatFormat    string  `yaml:"floatformat"`
	DateFormat     string  `yaml:"dateformat"`
	SheetDelimiter *string `yaml:"sheetdelimiter"`
	NativeTerm     bool    `yaml:"native-term"`
}

func loadConfig(path string) (*config, error) {
	cfg := &config{}
	if path == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}
