package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	yaml "gopkg.in/yaml.v2"
)

// reading config error is fatal, and exists main thread
func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

func readFile(path string, cfg *Configuration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("cannot decode %s: %w", path, err)
	}
	return nil
}

func readEnv(dir string, cfg *Configuration) error {
	// .env is a convenience for local runs, real deployments set the environment directly
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	return envconfig.Process("", cfg)
}

// Load reads <dir>/config.yml (optional) and overlays the environment on top of the defaults
func Load(dir string) (*Configuration, error) {
	cfg := Defaults()

	err := readFile(filepath.Join(dir, "config.yml"), &cfg)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := readEnv(dir, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Configuration) Validate() error {
	if c.Relay.PrivateKey == "" {
		return errors.New("relay private key is not set (RELAY_PRIVATE_KEY)")
	}
	if !common.IsHexAddress(c.Relay.ContractAddress) {
		return fmt.Errorf("relay contract address %q is not a valid address", c.Relay.ContractAddress)
	}

	dest, err := NewRegistry(c.Relay.DestinationChain, c.Chains).Lookup(c.Relay.DestinationChain)
	if err != nil {
		return fmt.Errorf("destination chain: %w", err)
	}
	if dest.Family != "eip155" || dest.ChainID == 0 {
		return fmt.Errorf("destination chain %s must be an EVM chain", dest.Namespace)
	}
	if len(dest.RPCList) == 0 {
		return fmt.Errorf("destination chain %s has no RPC endpoints", dest.Namespace)
	}

	if c.Relay.GasLimitCeiling == 0 {
		return errors.New("relay gas limit ceiling must be positive")
	}
	if c.Relay.ReceiptPollInterval <= 0 || c.Relay.ReceiptMaxPolls <= 0 {
		return errors.New("relay receipt polling must be positive")
	}
	if c.Workers.MarketSyncInterval <= 0 || c.Workers.PendingCheckInterval <= 0 {
		return errors.New("worker intervals must be positive")
	}
	return nil
}

func Init() {
	cfg, err := Load(".")
	if err != nil {
		processError(err)
	}
	Config = *cfg
}
