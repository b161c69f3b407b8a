package relayer

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker"

	"gobetrelay/types"
)

// classify maps a chain call error onto the relay taxonomy. Errors reported
// by a node that answered become answerKind, everything else is transport.
func classify(err error, answerKind types.ErrorKind, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.WrapError(types.ErrTimeout, what+" timed out", err)
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return types.WrapError(answerKind, revertReason(err), err)
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.WrapError(types.ErrRpcUnavailable, "destination chain rpc is failing, try again later", err)
	}
	return types.WrapError(types.ErrRpcUnavailable, what+" failed: "+err.Error(), err)
}

// revertReason prefers the decoded Error(string) payload over the node's message
func revertReason(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data, ok := dataErr.ErrorData().(string); ok {
			if raw, decErr := hexutil.Decode(data); decErr == nil {
				if reason, unpackErr := abi.UnpackRevert(raw); unpackErr == nil {
					return reason
				}
			}
		}
	}

	msg := err.Error()
	if reason, ok := strings.CutPrefix(msg, "execution reverted: "); ok {
		return reason
	}
	return msg
}
