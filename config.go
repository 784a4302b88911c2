package ppds

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/joshsmithxrm/ppds-sdk/queryerr"
)

// LoadConfig reads a Config from a YAML file. Any field the file omits
// keeps its Go zero value, matching Config{}'s own "conservative
// defaults" contract.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, queryerr.ErrExecutionFailed.New("reading config file: " + err.Error())
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, queryerr.ErrExecutionFailed.New("parsing config file: " + err.Error())
	}
	return cfg, nil
}
