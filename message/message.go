// Package message builds the exact text a user signs on the origin chain.
package message

import (
	"fmt"
	"strconv"
	"strings"

	"gobetrelay/types"
)

const header = "PushPredict Universal Action"

var labels = [...]string{"Action", "Market ID", "Option", "Amount", "Nonce", "Timestamp"}

// Fields are the values carried by a canonical message
type Fields struct {
	Action    types.Action
	MarketID  uint64
	Option    types.Option
	Amount    string
	Nonce     string
	Timestamp int64
}

// Build returns the canonical message. Identical arguments always give identical bytes.
func Build(action types.Action, marketID uint64, option types.Option, amount, nonce string, timestampMillis int64) string {
	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "\nAction: %s", action)
	fmt.Fprintf(&b, "\nMarket ID: %d", marketID)
	fmt.Fprintf(&b, "\nOption: %d", option)
	fmt.Fprintf(&b, "\nAmount: %s", amount)
	fmt.Fprintf(&b, "\nNonce: %s", nonce)
	fmt.Fprintf(&b, "\nTimestamp: %d", timestampMillis)
	return b.String()
}

func (f Fields) String() string {
	return Build(f.Action, f.MarketID, f.Option, f.Amount, f.Nonce, f.Timestamp)
}

// Parse reads a canonical message back. Text that would not be reproduced
// byte for byte by Build is rejected.
func Parse(text string) (Fields, error) {
	var f Fields

	lines := strings.Split(text, "\n")
	if len(lines) != len(labels)+1 || lines[0] != header {
		return f, types.NewError(types.ErrMessageMismatch, "message is not a canonical universal action")
	}

	values := make([]string, len(labels))
	for i, label := range labels {
		v, ok := strings.CutPrefix(lines[i+1], label+": ")
		if !ok {
			return f, types.Errorf(types.ErrMessageMismatch, "message line %d must start with %q", i+2, label)
		}
		values[i] = v
	}

	f.Action = types.Action(values[0])
	if f.Action != types.ActionPlaceBet {
		return f, types.Errorf(types.ErrMessageMismatch, "unsupported action %q", values[0])
	}

	var err error
	if f.MarketID, err = strconv.ParseUint(values[1], 10, 64); err != nil {
		return f, types.Errorf(types.ErrMessageMismatch, "bad market id %q", values[1])
	}

	option, err := strconv.ParseUint(values[2], 10, 8)
	if err != nil || !types.Option(option).Valid() {
		return f, types.Errorf(types.ErrMessageMismatch, "bad option %q", values[2])
	}
	f.Option = types.Option(option)

	f.Amount = values[3]
	f.Nonce = values[4]
	if f.Amount == "" || f.Nonce == "" {
		return f, types.NewError(types.ErrMessageMismatch, "amount and nonce must not be empty")
	}

	if f.Timestamp, err = strconv.ParseInt(values[5], 10, 64); err != nil {
		return f, types.Errorf(types.ErrMessageMismatch, "bad timestamp %q", values[5])
	}

	if f.String() != text {
		return f, types.NewError(types.ErrMessageMismatch, "message is not in canonical form")
	}
	return f, nil
}
