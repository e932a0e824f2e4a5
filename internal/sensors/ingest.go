package sensors

import (
	"context"
	"log/slog"
	"sync"

	"brineguard/internal/types"
)

// bufferSize bounds the per-series window of recent readings the ingestor
// keeps for gap filling.
const bufferSize = 32

// GapFiller fills missing values in a sensor series. Implemented by
// calibration.PhysicsImputer.
type GapFiller interface {
	Impute(readings []types.SensorReading, env *types.EnvironmentCondition, assets []types.PhysicsAsset) []types.ImputedReading
}

// ReadingWriter persists one resolved reading. Implemented by InfluxWriter.
type ReadingWriter interface {
	WriteReading(ctx context.Context, msg ReadingMessage, imputed bool) error
}

// Ingestor resolves each incoming reading to a concrete value and persists
// it. Readings with a value pass straight through; gaps are filled from a
// rolling per-series window so a flaky sensor still produces a usable
// series downstream.
type Ingestor struct {
	writer ReadingWriter
	filler GapFiller
	logger *slog.Logger

	mu      sync.Mutex
	buffers map[string][]types.SensorReading
}

// NewIngestor creates an ingestor. A nil filler drops gap readings instead
// of imputing them.
func NewIngestor(writer ReadingWriter, filler GapFiller, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		writer:  writer,
		filler:  filler,
		logger:  logger,
		buffers: map[string][]types.SensorReading{},
	}
}

// Handle processes one reading from the queue. It satisfies the consumer's
// Handler signature.
func (g *Ingestor) Handle(ctx context.Context, msg ReadingMessage) error {
	window := g.remember(msg)

	if msg.Value != nil {
		return g.writer.WriteReading(ctx, msg, false)
	}

	if g.filler == nil {
		g.logger.WarnContext(ctx, "dropping sensor gap, no gap filler configured",
			"asset_id", msg.AssetID,
			"parameter", msg.Parameter,
		)
		return nil
	}

	imputed := g.filler.Impute(window, nil, nil)
	if len(imputed) == 0 {
		return nil
	}
	last := imputed[len(imputed)-1]

	filled := msg
	filled.Value = &last.Value
	g.logger.InfoContext(ctx, "sensor gap filled",
		"asset_id", msg.AssetID,
		"parameter", msg.Parameter,
		"method", string(last.Method),
		"value", last.Value,
	)
	return g.writer.WriteReading(ctx, filled, true)
}

// remember appends the reading to its per-series window and returns a copy
// of the window safe to use outside the lock.
func (g *Ingestor) remember(msg ReadingMessage) []types.SensorReading {
	key := msg.AssetID + "|" + msg.Parameter

	g.mu.Lock()
	defer g.mu.Unlock()

	buf := append(g.buffers[key], types.SensorReading{Time: msg.RecordedAt, Value: msg.Value})
	if len(buf) > bufferSize {
		buf = buf[len(buf)-bufferSize:]
	}
	g.buffers[key] = buf

	window := make([]types.SensorReading, len(buf))
	copy(window, buf)
	return window
}
