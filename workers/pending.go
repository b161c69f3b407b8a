package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"gobetrelay/types"
)

type PendingStore interface {
	FindAllByStatus(ctx context.Context, status string) ([]*types.RelayRecord, error)
	ChangeStatus(ctx context.Context, rec *types.RelayRecord, prevStatus string) error
}

type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// Worker_processPending follows up relays that were submitted but not seen in a block
func Worker_processPending(ctx context.Context, store PendingStore, chain ReceiptSource, interval, giveUp time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("pending relay worker stopped")
			return
		case <-ticker.C:
		}

		if _, err := CheckPending(ctx, store, chain, giveUp, logger); err != nil {
			logger.Warn("error getting pending relays", zap.Error(err))
		}
	}
}

// CheckPending moves pending records whose outcome is known and returns how many moved
func CheckPending(ctx context.Context, store PendingStore, chain ReceiptSource, giveUp time.Duration, logger *zap.Logger) (int, error) {
	pending, err := store.FindAllByStatus(ctx, "pending")
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, rec := range pending {
		log := logger.With(zap.String("id", rec.ID), zap.String("tx", rec.TxHash))

		receipt, err := chain.TransactionReceipt(ctx, common.HexToHash(rec.TxHash))
		switch {
		case errors.Is(err, ethereum.NotFound):
			age := time.Since(time.Unix(rec.TsCreated, 0))
			if giveUp <= 0 || age < giveUp {
				continue
			}
			rec.Status = "failed"
			appendMessage(rec, fmt.Sprintf("no receipt after %s", age.Round(time.Second)))
		case err != nil:
			log.Warn("error getting receipt", zap.Error(err))
			continue
		case receipt.Status == ethtypes.ReceiptStatusSuccessful:
			rec.Status = "confirmed"
			rec.BlockNumber = receipt.BlockNumber.Uint64()
		default:
			rec.Status = "failed"
			rec.BlockNumber = receipt.BlockNumber.Uint64()
			appendMessage(rec, "reverted on chain")
		}

		if err := store.ChangeStatus(ctx, rec, "pending"); err != nil {
			log.Error("cannot update relay status", zap.String("status", rec.Status), zap.Error(err))
			continue
		}
		log.Info("pending relay resolved", zap.String("status", rec.Status), zap.Uint64("block", rec.BlockNumber))
		moved++
	}
	return moved, nil
}

func appendMessage(rec *types.RelayRecord, msg string) {
	if rec.Message == "" {
		rec.Message = msg
	} else {
		rec.Message += "; " + msg
	}
}
