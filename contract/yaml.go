package contract

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a YAML contract definition and constructs the validated
// Contract. The file maps directly onto Config field tags:
//
//	persona: |
//	  You are the internal policy assistant ...
//	scope: |
//	  You answer questions on these topics only: ...
//	refusal: "I can only answer questions about release freeze and SEV1 incidents."
//	...
func LoadFile(path string) (*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contract file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML contract data and validates it via New.
func Parse(data []byte) (*Contract, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode contract yaml: %w", err)
	}
	return New(cfg)
}
