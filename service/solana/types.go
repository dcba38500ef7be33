package solana

// ParsedTransaction is the subset of a jsonParsed transaction the linker
// needs. This is our domain model, independent of the RPC response format.
type ParsedTransaction struct {
	Signature    string
	AccountKeys  []string      // in message order
	Instructions []Instruction // in message order
}

// Instruction is one top-level instruction of a transaction.
type Instruction struct {
	ProgramID string        // empty when the node did not report one
	Parsed    *TransferInfo // nil unless the payload carries a source/destination pair
}

// TransferInfo is the decoded payload of a native or token transfer.
type TransferInfo struct {
	Source      string
	Destination string
	Mint        string // empty for plain token transfers and native transfers
}

// SignatureInfo is one entry of getSignaturesForAddress.
type SignatureInfo struct {
	Signature string      `json:"signature"`
	Slot      uint64      `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}
