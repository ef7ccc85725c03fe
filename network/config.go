package network

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl"
	"github.com/joho/godotenv"
	"github.com/umbracle/ethgo"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is the configuration file looked up when none is given
	DefaultConfigPath = "./farm-config.yaml"

	// DefaultJSONRPCAddr is used by local networks which don't configure an endpoint
	DefaultJSONRPCAddr = "http://127.0.0.1:8545"
)

// ErrMissingNetworkConfig is returned when the configuration has no entry for
// the requested network or contract
var ErrMissingNetworkConfig = errors.New("missing network configuration")

// Config is the network configuration of the deployment tooling
type Config struct {
	Dotenv         string              `json:"dotenv" yaml:"dotenv" hcl:"dotenv"`
	DefaultNetwork string              `json:"default_network" yaml:"default_network" hcl:"default_network"`
	Networks       map[string]*Network `json:"networks" yaml:"networks" hcl:"networks"`
	Wallets        *Wallets            `json:"wallets" yaml:"wallets" hcl:"wallets"`
	SecretsConfig  string              `json:"secrets_config" yaml:"secrets_config" hcl:"secrets_config"`

	path string
}

// Network holds the per-network settings
type Network struct {
	JSONRPC   string            `json:"jsonrpc" yaml:"jsonrpc" hcl:"jsonrpc"`
	Verify    bool              `json:"verify" yaml:"verify" hcl:"verify"`
	Explorer  string            `json:"explorer" yaml:"explorer" hcl:"explorer"`
	Contracts map[string]string `json:"contracts" yaml:"contracts" hcl:"contracts"`
}

// Wallets holds the credential material referenced by the configuration
type Wallets struct {
	FromKey string `json:"from_key" yaml:"from_key" hcl:"from_key"`
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		DefaultNetwork: Development.String(),
		Networks: map[string]*Network{
			Development.String():  {},
			GanacheLocal.String(): {JSONRPC: DefaultJSONRPCAddr},
		},
		Wallets: &Wallets{},
	}
}

// ReadConfigFile reads the config file from the specified path, loads the
// referenced dotenv file, expands ${VAR} references and returns the result.
//
// Supported file types: .json, .hcl, .yaml, .yml
func ReadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	unmarshalFunc, err := unmarshalFuncFor(path)
	if err != nil {
		return nil, err
	}

	// the dotenv file has to be loaded before the variables are expanded
	var preamble struct {
		Dotenv string `json:"dotenv" yaml:"dotenv" hcl:"dotenv"`
	}

	if err := unmarshalFunc(data, &preamble); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if preamble.Dotenv != "" {
		dotenvPath := preamble.Dotenv
		if !filepath.IsAbs(dotenvPath) {
			dotenvPath = filepath.Join(filepath.Dir(path), dotenvPath)
		}

		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load dotenv file %s: %w", dotenvPath, err)
		}
	}

	config := DefaultConfig()
	if err := unmarshalFunc([]byte(os.ExpandEnv(string(data))), config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	config.path = path

	if config.Wallets == nil {
		config.Wallets = &Wallets{}
	}

	return config, nil
}

// LoadConfig reads the configuration at path, falling back to the defaults
// when the default path is requested and nothing exists there
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	config, err := ReadConfigFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultConfigPath {
			return DefaultConfig(), nil
		}

		return nil, fmt.Errorf("failed to read network configuration: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// ReadRawConfigFile decodes the file into a generic document without
// expanding environment references
func ReadRawConfigFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	unmarshalFunc, err := unmarshalFuncFor(path)
	if err != nil {
		return nil, err
	}

	raw := map[string]interface{}{}
	if err := unmarshalFunc(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return raw, nil
}

func unmarshalFuncFor(path string) (func([]byte, interface{}) error, error) {
	switch {
	case strings.HasSuffix(path, ".hcl"):
		return hcl.Unmarshal, nil
	case strings.HasSuffix(path, ".json"):
		return json.Unmarshal, nil
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return yaml.Unmarshal, nil
	default:
		return nil, fmt.Errorf("suffix of %s is neither hcl, json, yaml nor yml", path)
	}
}

// Path returns the file the configuration was read from, empty for defaults
func (c *Config) Path() string {
	return c.path
}

// ActiveNetwork returns the network context selected by name, or the
// configured default when name is empty
func (c *Config) ActiveNetwork(name string) (Context, error) {
	if name == "" {
		name = c.DefaultNetwork
	}

	if _, ok := c.Networks[name]; !ok {
		return "", fmt.Errorf("%w: network '%s' is not configured", ErrMissingNetworkConfig, name)
	}

	return Context(name), nil
}

// Network returns the settings of the given network
func (c *Config) Network(ctx Context) (*Network, error) {
	network, ok := c.Networks[ctx.String()]
	if !ok || network == nil {
		return nil, fmt.Errorf("%w: network '%s' is not configured", ErrMissingNetworkConfig, ctx)
	}

	return network, nil
}

// JSONRPCAddr returns the endpoint of the given network
func (c *Config) JSONRPCAddr(ctx Context) (string, error) {
	network, err := c.Network(ctx)
	if err != nil {
		return "", err
	}

	if network.JSONRPC == "" {
		if ctx.IsLocal() {
			return DefaultJSONRPCAddr, nil
		}

		return "", fmt.Errorf("%w: no jsonrpc endpoint for network '%s'", ErrMissingNetworkConfig, ctx)
	}

	return network.JSONRPC, nil
}

// ShouldVerify reports whether deployed sources are published on the given network
func (c *Config) ShouldVerify(ctx Context) (bool, error) {
	network, err := c.Network(ctx)
	if err != nil {
		return false, err
	}

	return network.Verify, nil
}

// ContractAddress returns the configured address of a contract on the given network
func (c *Config) ContractAddress(ctx Context, name string) (ethgo.Address, error) {
	network, err := c.Network(ctx)
	if err != nil {
		return ethgo.ZeroAddress, err
	}

	addr, ok := network.Contracts[name]
	if !ok || addr == "" {
		return ethgo.ZeroAddress, fmt.Errorf("%w: no address for '%s' on network '%s'",
			ErrMissingNetworkConfig, name, ctx)
	}

	return ethgo.HexToAddress(addr), nil
}

// FromKey returns the wallet key referenced by the configuration
func (c *Config) FromKey() string {
	if c.Wallets == nil {
		return ""
	}

	return c.Wallets.FromKey
}

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	var result *multierror.Error

	if _, ok := c.Networks[c.DefaultNetwork]; !ok {
		result = multierror.Append(result,
			fmt.Errorf("default network '%s' is not configured", c.DefaultNetwork))
	}

	for name, network := range c.Networks {
		if network == nil {
			continue
		}

		ctx := Context(name)
		if !ctx.IsLocal() && network.JSONRPC == "" {
			result = multierror.Append(result, fmt.Errorf("network '%s' has no jsonrpc endpoint", name))
		}

		if network.Verify && network.Explorer == "" {
			result = multierror.Append(result,
				fmt.Errorf("network '%s' requests verification but has no explorer", name))
		}

		for contract, addr := range network.Contracts {
			if !IsHexAddress(addr) {
				result = multierror.Append(result,
					fmt.Errorf("network '%s': invalid address '%s' for %s", name, addr, contract))
			}
		}
	}

	return result.ErrorOrNil()
}

const addressLength = 20

// IsHexAddress checks whether the string is a 20 byte hex encoded address
func IsHexAddress(s string) bool {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != 2*addressLength {
		return false
	}

	_, err := hex.DecodeString(s)

	return err == nil
}
