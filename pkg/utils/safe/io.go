package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/secmon-lab/actiontrail/pkg/utils/logging"
)

// Close closes closer and logs a failure. Nil closers are ignored.
func Close(ctx context.Context, closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.From(ctx).Error("Failed to close", slog.Any("error", err))
	}
}

// Write writes an HTTP response body or similar sink where the caller has no
// way to recover from a short write. Failures are logged.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("Failed to write response", slog.Any("error", err), slog.Int("size", len(data)))
	}
}
