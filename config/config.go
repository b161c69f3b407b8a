package config

import "time"

type Configuration struct {
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL"`
	// Server config
	Server struct {
		Listen          string `yaml:"listen"`
		UseSSL          bool   `yaml:"ssl"`
		RedisPort       int    `yaml:"redis_port" envconfig:"REDIS_PORT"`
		RedisHost       string `yaml:"redis_host" envconfig:"REDIS_HOST"`
		RateLimitPerMin int    `yaml:"rate_limit_per_min" envconfig:"RATE_LIMIT_PER_MIN"`
	} `yaml:"server"`
	// destination chain and the relay account paying for bets
	Relay struct {
		DestinationChain string `yaml:"destination_chain" envconfig:"DESTINATION_CHAIN"`
		ContractAddress  string `yaml:"contract_address" envconfig:"CONTRACT_ADDRESS"`
		// important private stuff
		PrivateKey          string        `yaml:"private_key" envconfig:"PRIVATE_KEY"`
		GasLimitCeiling     uint64        `yaml:"gas_limit_ceiling" envconfig:"GAS_LIMIT_CEILING"`
		EstimateTimeout     time.Duration `yaml:"estimate_timeout" envconfig:"ESTIMATE_TIMEOUT"`
		SubmitTimeout       time.Duration `yaml:"submit_timeout" envconfig:"SUBMIT_TIMEOUT"`
		ReceiptTimeout      time.Duration `yaml:"receipt_timeout" envconfig:"RECEIPT_TIMEOUT"`
		ReceiptPollInterval time.Duration `yaml:"receipt_poll_interval" envconfig:"RECEIPT_POLL_INTERVAL"`
		ReceiptMaxPolls     int           `yaml:"receipt_max_polls" envconfig:"RECEIPT_MAX_POLLS"`
		MaxMessageAge       time.Duration `yaml:"max_message_age" envconfig:"MAX_MESSAGE_AGE"`
		MaxClockSkew        time.Duration `yaml:"max_clock_skew" envconfig:"MAX_CLOCK_SKEW"`
		ClaimTTL            time.Duration `yaml:"claim_ttl" envconfig:"CLAIM_TTL"`
	} `yaml:"relay"`
	Bridge struct {
		// non-native origins must reference a verified payment to the chain gateway
		Required bool `yaml:"required" envconfig:"REQUIRED"`
	} `yaml:"bridge"`
	Fees struct {
		BridgeFeeBps int64  `yaml:"bridge_fee_bps" envconfig:"BRIDGE_FEE_BPS"`
		NativeFee    string `yaml:"native_fee" envconfig:"NATIVE_FEE"`
	} `yaml:"fees"`
	Workers struct {
		MarketSyncInterval   time.Duration `yaml:"market_sync_interval" envconfig:"MARKET_SYNC_INTERVAL"`
		PendingCheckInterval time.Duration `yaml:"pending_check_interval" envconfig:"PENDING_CHECK_INTERVAL"`
		// pending relays without a receipt after this long are marked failed
		PendingGiveUp time.Duration `yaml:"pending_give_up" envconfig:"PENDING_GIVE_UP"`
	} `yaml:"workers"`
	// per-namespace overrides of the built-in chain table
	Chains map[string]ChainOverride `yaml:"chains" ignored:"true"`
}

var Config Configuration

// destination namespace used when none is configured
const DefaultDestinationChain = "eip155:42101"

// maximum number of EVM RPC endpoints tried per call
const EVM_RETRIES = 3

// Defaults are applied before config.yml and the environment are read
func Defaults() Configuration {
	var cfg Configuration
	cfg.LogLevel = "info"
	cfg.Server.Listen = ":8080"
	cfg.Server.RedisHost = "127.0.0.1"
	cfg.Server.RedisPort = 6379
	cfg.Server.RateLimitPerMin = 30

	cfg.Relay.DestinationChain = DefaultDestinationChain
	cfg.Relay.GasLimitCeiling = 500000
	cfg.Relay.EstimateTimeout = 15 * time.Second
	cfg.Relay.SubmitTimeout = 20 * time.Second
	cfg.Relay.ReceiptTimeout = 90 * time.Second
	cfg.Relay.ReceiptPollInterval = 2 * time.Second
	cfg.Relay.ReceiptMaxPolls = 45
	cfg.Relay.MaxMessageAge = 10 * time.Minute
	cfg.Relay.MaxClockSkew = 2 * time.Minute
	cfg.Relay.ClaimTTL = 24 * time.Hour

	cfg.Bridge.Required = true

	cfg.Fees.BridgeFeeBps = 30
	cfg.Fees.NativeFee = "0.001"

	cfg.Workers.MarketSyncInterval = time.Minute
	cfg.Workers.PendingCheckInterval = 15 * time.Second
	cfg.Workers.PendingGiveUp = time.Hour
	return cfg
}

var RedisStatusSets = map[string]string{
	"pending":   "relayops:pending",   // transaction broadcast, receipt not seen yet
	"confirmed": "relayops:confirmed", // included with status 1
	"failed":    "relayops:failed",    // reverted on chain or given up
}
