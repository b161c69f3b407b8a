package handlers

type APIResponse struct {
	Success   bool   `json:"success"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
	Field     string `json:"field,omitempty"`
}

type PlaceBetRequest struct {
	MarketID      uint64 `json:"marketId"`
	Option        uint8  `json:"option"`
	Amount        string `json:"amount"`
	OriginChain   string `json:"originChain"`
	OriginAddress string `json:"originAddress"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
	Nonce         string `json:"nonce"`
	Timestamp     int64  `json:"timestamp,omitempty"`
	BridgeID      string `json:"bridgeId,omitempty"`
}

type PlaceBetResponse struct {
	Success            bool   `json:"success"`
	Status             string `json:"status"`
	TxHash             string `json:"txHash"`
	BlockNumber        uint64 `json:"blockNumber,omitempty"`
	DestinationAddress string `json:"destinationAddress"`
	OriginChain        string `json:"originChain"`
	OriginAddress      string `json:"originAddress"`
	GasLimit           uint64 `json:"gasLimit,omitempty"`
	Explorer           string `json:"explorer,omitempty"`
}

type VerifySignatureRequest struct {
	Message       string `json:"message"`
	Signature     string `json:"signature"`
	OriginChain   string `json:"originChain"`
	OriginAddress string `json:"originAddress"`
}

type VerifySignatureResponse struct {
	Success          bool   `json:"success"`
	IsValid          bool   `json:"isValid"`
	RecoveredAddress string `json:"recoveredAddress,omitempty"`
	Error            string `json:"error,omitempty"`
	ErrorKind        string `json:"errorKind,omitempty"`
}

type ChainResponse struct {
	Namespace       string `json:"namespace"`
	Name            string `json:"name"`
	Family          string `json:"family"`
	Currency        string `json:"currency"`
	Decimals        int32  `json:"decimals"`
	Native          bool   `json:"native"`
	Rate            string `json:"rate"`
	MinBridgeAmount string `json:"minBridgeAmount,omitempty"`
	Gateway         string `json:"gateway,omitempty"`
	Explorer        string `json:"explorer,omitempty"`
}

type AddressResponse struct {
	Success            bool   `json:"success"`
	OriginChain        string `json:"originChain"`
	OriginAddress      string `json:"originAddress"`
	DestinationAddress string `json:"destinationAddress"`
	Version            int    `json:"version"`
	Native             bool   `json:"native"`
}

type BridgeVerifyRequest struct {
	BridgeID    string `json:"bridgeId"`
	OriginChain string `json:"originChain"`
	UserAddress string `json:"userAddress"`
	Amount      string `json:"amount"`
}

type BridgeVerifyResponse struct {
	Success     bool   `json:"success"`
	Verified    bool   `json:"verified"`
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
	Amount      string `json:"amount"`
}

type BalanceResponse struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

type MarketResponse struct {
	ID       uint64 `json:"id"`
	Title    string `json:"title"`
	OptionA  string `json:"optionA"`
	OptionB  string `json:"optionB"`
	MinBet   string `json:"minBet"`
	MaxBet   string `json:"maxBet"`
	EndTime  int64  `json:"endTime"`
	Status   uint8  `json:"status"`
	Resolved bool   `json:"resolved"`
	ImageURL string `json:"imageUrl,omitempty"`
}

type APIStateResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
