package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig is the optional YAML configuration file. Command-line flags
// override any value set here.
type ServerConfig struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`

	// OracleURL is the oracle base URL. Leave empty to discover it through
	// DNS SRV records for OracleDomain.
	OracleURL    string `yaml:"oracle_url"`
	OracleDomain string `yaml:"oracle_domain"`
	DNSResolver  string `yaml:"dns_resolver"`

	// CallbackURL is the externally reachable callback endpoint handed to
	// the oracle with each decryption request.
	CallbackURL string `yaml:"callback_url"`

	// Verifier selects the proof scheme: "ecdsa" or "tdx".
	Verifier string `yaml:"verifier"`

	// OracleAddresses is the ECDSA verifier trust root, hex addresses.
	OracleAddresses []string `yaml:"oracle_addresses"`

	// JournalLocations lists journal backend URIs (file://, s3://, ipfs://,
	// vault://). Empty disables journaling.
	JournalLocations []string `yaml:"journal_locations"`
}

// LoadServerConfig reads and parses a YAML configuration file.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var cfg ServerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file: %w", err)
	}
	return &cfg, nil
}
