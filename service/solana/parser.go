package solana

import (
	"encoding/json"
	"fmt"
)

// rawTransaction mirrors the getTransaction result with encoding=jsonParsed.
// Only the fields we read are declared.
type rawTransaction struct {
	Transaction *struct {
		Message *struct {
			AccountKeys  []json.RawMessage `json:"accountKeys"`
			Instructions []rawInstruction  `json:"instructions"`
		} `json:"message"`
	} `json:"transaction"`
}

type rawInstruction struct {
	ProgramID string          `json:"programId"`
	Parsed    json.RawMessage `json:"parsed"`
}

// parsedAccountKey is the object form of an account key
// ({"pubkey": ..., "signer": ..., "writable": ...}).
type parsedAccountKey struct {
	Pubkey string `json:"pubkey"`
}

// parsedPayload is the object form of an instruction's parsed field.
// Programs without a JSON parser emit a bare string instead.
type parsedPayload struct {
	Info struct {
		Source      string `json:"source"`
		Destination string `json:"destination"`
		Mint        string `json:"mint"`
	} `json:"info"`
}

// parseTransaction converts a jsonParsed getTransaction result into a
// ParsedTransaction. It fails only when the message itself is missing;
// individual keys or payloads it cannot decode are dropped.
func parseTransaction(signature string, raw *rawTransaction) (*ParsedTransaction, error) {
	if raw == nil || raw.Transaction == nil || raw.Transaction.Message == nil {
		return nil, fmt.Errorf("transaction %s: missing transaction.message", signature)
	}
	msg := raw.Transaction.Message

	txn := &ParsedTransaction{
		Signature:    signature,
		AccountKeys:  make([]string, 0, len(msg.AccountKeys)),
		Instructions: make([]Instruction, 0, len(msg.Instructions)),
	}

	for _, key := range msg.AccountKeys {
		if addr := decodeAccountKey(key); addr != "" {
			txn.AccountKeys = append(txn.AccountKeys, addr)
		}
	}

	for _, ix := range msg.Instructions {
		txn.Instructions = append(txn.Instructions, Instruction{
			ProgramID: ix.ProgramID,
			Parsed:    decodeTransfer(ix.Parsed),
		})
	}

	return txn, nil
}

// decodeAccountKey accepts both the legacy string form and the jsonParsed
// object form of an account key.
func decodeAccountKey(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj parsedAccountKey
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Pubkey
	}
	return ""
}

// decodeTransfer returns the transfer payload when the instruction's parsed
// field is an object whose info carries both a source and a destination.
func decodeTransfer(raw json.RawMessage) *TransferInfo {
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}
	var p parsedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil
	}
	if p.Info.Source == "" || p.Info.Destination == "" {
		return nil
	}
	return &TransferInfo{
		Source:      p.Info.Source,
		Destination: p.Info.Destination,
		Mint:        p.Info.Mint,
	}
}
