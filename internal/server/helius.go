package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mr-tron/base58"

	"github.com/songzhibin97/alertflux/internal/models"
	"github.com/songzhibin97/alertflux/internal/utils/request"
)

const (
	signatureLen    = 64
	mintLen         = 32
	lamportsPerSOL  = 1e9
	unknownPlatform = "UNKNOWN"
)

// heliusTransaction Helius enhanced transaction, 只解析需要的字段
type heliusTransaction struct {
	Signature      string `json:"signature"`
	Type           string `json:"type"`
	Source         string `json:"source"`
	Timestamp      int64  `json:"timestamp"`
	TokenTransfers []struct {
		Mint        string  `json:"mint"`
		TokenAmount float64 `json:"tokenAmount"`
	} `json:"tokenTransfers"`
	Events struct {
		Swap *struct {
			NativeInput *struct {
				Amount flexNumber `json:"amount"`
			} `json:"nativeInput"`
			TokenOutputs []struct {
				Mint string `json:"mint"`
			} `json:"tokenOutputs"`
		} `json:"swap"`
	} `json:"events"`
}

// flexNumber accepts a JSON number or a numeric string.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*n = 0
		return nil
	}
	v, err := request.ParseFloat(string(b))
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", b, err)
	}
	*n = flexNumber(v)
	return nil
}

// decodeHeliusBatch splits the body into raw items; only a body that is not
// a JSON array is an error.
func decodeHeliusBatch(body []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to decode webhook body: %w", err)
	}
	if items == nil {
		return nil, fmt.Errorf("webhook body must be a JSON array")
	}
	return items, nil
}

// parseSwap validates one enhanced transaction into a SwapTransaction.
func parseSwap(raw json.RawMessage) (models.SwapTransaction, error) {
	var tx heliusTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return models.SwapTransaction{}, fmt.Errorf("failed to decode transaction: %w", err)
	}

	if err := checkBase58(tx.Signature, signatureLen); err != nil {
		return models.SwapTransaction{}, fmt.Errorf("invalid signature: %w", err)
	}

	mint := tokenAddress(tx)
	if err := checkBase58(mint, mintLen); err != nil {
		return models.SwapTransaction{}, fmt.Errorf("invalid token address: %w", err)
	}

	platform := tx.Source
	if platform == "" {
		platform = unknownPlatform
	}

	var ts time.Time
	if tx.Timestamp > 0 {
		ts = time.Unix(tx.Timestamp, 0).UTC()
	}

	return models.SwapTransaction{
		Signature:    tx.Signature,
		TokenAddress: mint,
		Platform:     platform,
		InAmount:     inAmount(tx),
		Timestamp:    ts,
	}, nil
}

// tokenAddress prefers the first swap output, then the last token transfer.
func tokenAddress(tx heliusTransaction) string {
	if sw := tx.Events.Swap; sw != nil && len(sw.TokenOutputs) > 0 && sw.TokenOutputs[0].Mint != "" {
		return sw.TokenOutputs[0].Mint
	}
	if n := len(tx.TokenTransfers); n > 0 {
		return tx.TokenTransfers[n-1].Mint
	}
	return ""
}

// inAmount is the SOL paid in, else the first transferred token amount.
func inAmount(tx heliusTransaction) float64 {
	if sw := tx.Events.Swap; sw != nil && sw.NativeInput != nil && sw.NativeInput.Amount > 0 {
		return float64(sw.NativeInput.Amount) / lamportsPerSOL
	}
	if len(tx.TokenTransfers) > 0 {
		return tx.TokenTransfers[0].TokenAmount
	}
	return 0
}

func checkBase58(s string, want int) error {
	if s == "" {
		return fmt.Errorf("empty value")
	}
	b, err := base58.Decode(s)
	if err != nil {
		return err
	}
	if len(b) != want {
		return fmt.Errorf("decoded length %d, want %d", len(b), want)
	}
	return nil
}
