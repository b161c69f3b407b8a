package config

import (
	"sort"
	"strings"

	"gobetrelay/types"
)

// registry table version, bump when namespaces are added or removed
const ChainRegistryVersion = 1

// supported chain configs
type ChainConfig struct {
	Namespace string
	Name      string
	Family    string
	Native    bool // the destination chain itself, set by NewRegistry
	Currency  string
	Decimals  int32
	ChainID   int64 // EVM chain id, 0 for other families
	RPCList   []string
	Explorer  string
	Gateway   string // bridge receiver on the origin chain
	// destination-chain units per one origin-chain unit
	Rate            string
	MinBridgeAmount string
	FixedFee        string // relay gas surcharge, origin currency
}

type ChainOverride struct {
	RPCList         []string `yaml:"rpc"`
	Gateway         string   `yaml:"gateway"`
	Rate            string   `yaml:"rate"`
	MinBridgeAmount string   `yaml:"min_bridge_amount"`
	FixedFee        string   `yaml:"fixed_fee"`
}

var Chains = map[string]ChainConfig{
	"eip155:42101": {
		Namespace: "eip155:42101",
		Name:      "Push Network Donut Testnet",
		Family:    types.FamilyEVM,
		Currency:  "PC",
		Decimals:  18,
		ChainID:   42101,
		RPCList:   []string{"https://evm.rpc-testnet-donut-node1.push.org/", "https://evm.rpc-testnet-donut-node2.push.org/"},
		Explorer:  "https://donut.push.network/",
		Rate:      "1",
	}, // Push Donut
	"eip155:11155111": {
		Namespace:       "eip155:11155111",
		Name:            "Ethereum Sepolia",
		Family:          types.FamilyEVM,
		Currency:        "ETH",
		Decimals:        18,
		ChainID:         11155111,
		RPCList:         []string{"https://gateway.tenderly.co/public/sepolia", "https://ethereum-sepolia-rpc.publicnode.com"},
		Explorer:        "https://sepolia.etherscan.io/",
		Gateway:         "0x05bD7a3D18324c1F7e216f7fBF2b15985aE5281A",
		Rate:            "1000",
		MinBridgeAmount: "0.0001",
		FixedFee:        "0.005",
	}, // Sepolia
	"solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1": {
		Namespace:       "solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1",
		Name:            "Solana Devnet",
		Family:          types.FamilySolana,
		Currency:        "SOL",
		Decimals:        9,
		RPCList:         []string{"https://api.devnet.solana.com"},
		Explorer:        "https://explorer.solana.com/?cluster=devnet",
		Gateway:         "CFVSincHYbETh2k7w6u1ENEkjbSLtveRCEBupKidw2VS",
		Rate:            "100",
		MinBridgeAmount: "0.01",
		FixedFee:        "0.0001",
	}, // Solana devnet
}

// Registry is the closed set of namespaces the relay accepts
type Registry struct {
	chains map[string]ChainConfig
}

// NewRegistry marks destination as the native chain and applies overrides
func NewRegistry(destination string, overrides map[string]ChainOverride) *Registry {
	chains := make(map[string]ChainConfig, len(Chains))
	for ns, c := range Chains {
		c.Native = ns == destination
		c.RPCList = append([]string(nil), c.RPCList...)
		if o, ok := overrides[ns]; ok {
			if len(o.RPCList) > 0 {
				c.RPCList = append([]string(nil), o.RPCList...)
			}
			if o.Gateway != "" {
				c.Gateway = o.Gateway
			}
			if o.Rate != "" {
				c.Rate = o.Rate
			}
			if o.MinBridgeAmount != "" {
				c.MinBridgeAmount = o.MinBridgeAmount
			}
			if o.FixedFee != "" {
				c.FixedFee = o.FixedFee
			}
		}
		chains[ns] = c
	}
	return &Registry{chains: chains}
}

func (r *Registry) Lookup(namespace string) (ChainConfig, error) {
	c, ok := r.chains[namespace]
	if !ok {
		return ChainConfig{}, types.Errorf(types.ErrUnsupportedChain, "chain %q is not supported", namespace)
	}
	return c, nil
}

// List returns the native chain first, then the rest ordered by namespace
func (r *Registry) List() []ChainConfig {
	out := make([]ChainConfig, 0, len(r.chains))
	for _, c := range r.chains {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Native != out[j].Native {
			return out[i].Native
		}
		return out[i].Namespace < out[j].Namespace
	})
	return out
}

// Family returns the part of a namespace before the first ':'
func Family(namespace string) string {
	family, _, _ := strings.Cut(namespace, ":")
	return family
}
