package webhook

// Payload is the vendor JSON shape of an enhanced transfer webhook.
type Payload struct {
	Type            string           `json:"type"`
	Signature       string           `json:"signature"`
	Timestamp       int64            `json:"timestamp"`
	Slot            int64            `json:"slot"`
	Description     string           `json:"description,omitempty"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers,omitempty"`
	TokenTransfers  []TokenTransfer  `json:"tokenTransfers,omitempty"`
}

// NativeTransfer is one SOL movement within a transaction.
// Amount is a decimal string in lamports.
type NativeTransfer struct {
	Amount          string `json:"amount"`
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
}

// TokenTransfer is one SPL token movement within a transaction.
// TokenAmount is a decimal string in the mint's raw units.
type TokenTransfer struct {
	Mint             string `json:"mint"`
	TokenAmount      string `json:"tokenAmount"`
	FromUserAccount  string `json:"fromUserAccount"`
	ToUserAccount    string `json:"toUserAccount"`
	FromTokenAccount string `json:"fromTokenAccount"`
	ToTokenAccount   string `json:"toTokenAccount"`
}
