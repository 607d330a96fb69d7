package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	posUseCase "github.com/allisson/possync/internal/pos/usecase"
)

// RunRequeueFailed resets a FAILED offline queue entry back to QUEUED and
// drains the in-memory queue so the entry is replayed immediately by this
// process rather than waiting for the next server restart.
func RunRequeueFailed(
	ctx context.Context,
	syncUseCase posUseCase.SyncUseCase,
	logger *slog.Logger,
	out io.Writer,
	entryID uuid.UUID,
) error {
	if err := syncUseCase.RequeueFailed(ctx, entryID); err != nil {
		return fmt.Errorf("failed to requeue entry: %w", err)
	}

	processed := 0
	for syncUseCase.ProcessNext(ctx) {
		processed++
	}

	logger.Info("requeued failed entry",
		slog.String("entry_id", entryID.String()),
		slog.Int("processed", processed),
	)

	fmt.Fprintf(out, "entry %s requeued, %d job(s) processed\n", entryID, processed)
	return nil
}
