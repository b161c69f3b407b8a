package types

// chain namespaces are "<family>:<chain-id-or-cluster>", e.g. eip155:11155111

const (
	FamilyEVM    = "eip155"
	FamilySolana = "solana"
)

type Action string

const ActionPlaceBet Action = "PLACE_BET"

// Option is the market side a bet is placed on (0 = option A, 1 = option B)
type Option uint8

const (
	OptionA Option = 0
	OptionB Option = 1
)

func (o Option) Valid() bool {
	return o == OptionA || o == OptionB
}

// BetIntent is consumed exactly once by the relay and never stored by it
type BetIntent struct {
	MarketID      uint64
	Option        Option
	Amount        string // decimal, destination-chain native units
	OriginChain   string
	OriginAddress string
	Nonce         string
	Timestamp     int64 // unix millis
	BridgeTxHash  string
}

// SignatureProof is validated once and discarded
type SignatureProof struct {
	Message        string
	Signature      string
	ChainNamespace string
	ClaimedAddress string
}

type BridgeQuote struct {
	DestinationAmount string `json:"destinationAmount"`
	OriginAmount      string `json:"originAmount"`
	Rate              string `json:"rate"`
	MinBridgeAmount   string `json:"minBridgeAmount"`
	Fee               string `json:"fee"`
	FeeCurrency       string `json:"feeCurrency"`
	OriginCurrency    string `json:"originCurrency"`
	Native            bool   `json:"native"`
}

type RelayState string

const (
	StateReceived          RelayState = "received"
	StateSignatureVerified RelayState = "signature_verified"
	StateAddressResolved   RelayState = "address_resolved"
	StateAmountValidated   RelayState = "amount_validated"
	StateBridgeVerified    RelayState = "bridge_verified"
	StateGasEstimated      RelayState = "gas_estimated"
	StateSubmitted         RelayState = "submitted"
	StateConfirmed         RelayState = "confirmed"
	StatePending           RelayState = "pending"
	StateFailed            RelayState = "failed"
)

type RelayResult struct {
	State              RelayState
	TxHash             string
	BlockNumber        uint64
	DestinationAddress string
	GasLimit           uint64
	Nonce              uint64
}

// Relay records are kept by the activity log for display and follow-up.
// Status is one of "pending", "confirmed", "failed".
type RelayRecord struct {
	ID                 string
	Status             string
	MarketID           uint64
	Option             Option
	Amount             string
	DestinationAddress string
	OriginChain        string
	OriginAddress      string
	Nonce              string
	BridgeTxHash       string
	TxHash             string
	BlockNumber        uint64
	TsCreated          int64
	TsUpdated          int64
	Message            string // processing notes and errors
}

// AddressBookRecord caches an origin identity -> destination address derivation
type AddressBookRecord struct {
	OriginChain        string
	OriginAddress      string
	DestinationAddress string
	Version            int
	TsCreated          int64
}

// BridgePayment is a verified origin-chain transfer to the bridge gateway
type BridgePayment struct {
	TxHash      string `json:"txHash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	BlockNumber uint64 `json:"blockNumber"`
}
