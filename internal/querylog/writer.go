package querylog

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Entry is one logged search request, successful or failed.
type Entry struct {
	RequestID   string
	Query       string
	Mode        string
	TopK        int
	Filters     map[string]any
	ResultCount int
	Results     []Hit
	DurationMS  int64
	Err         string
}

// Hit is the id and score of one returned result.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Writer appends one JSON line per search request to a log file.
// Lines go through a locked zap core, so concurrent writes stay whole.
type Writer struct {
	logger *zap.Logger
	file   *os.File
}

// New opens (or creates) the log file in append mode.
// writes is a counter vec with label "status" ("ok"/"error"), may be nil.
func New(path string, writes *prometheus.CounterVec) (*Writer, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open query log %s: %w", path, err)
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "ts",
		MessageKey:     "event",
		LevelKey:       zapcore.OmitKey,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	}

	sink := &countingSyncer{ws: zapcore.AddSync(file), writes: writes}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(sink), zapcore.InfoLevel)

	return &Writer{logger: zap.New(core), file: file}, nil
}

// Write appends an entry. It never returns an error: a failed append is
// counted in the metric and must not fail the search response.
func (w *Writer) Write(e Entry) {
	fields := []zap.Field{
		zap.String("request_id", e.RequestID),
		zap.String("query", e.Query),
		zap.String("mode", e.Mode),
		zap.Int("top_k", e.TopK),
		zap.Int("result_count", e.ResultCount),
		zap.Int64("duration_ms", e.DurationMS),
	}
	if len(e.Filters) > 0 {
		fields = append(fields, zap.Any("filters", e.Filters))
	}
	if len(e.Results) > 0 {
		fields = append(fields, zap.Any("results", e.Results))
	}
	if e.Err != "" {
		fields = append(fields, zap.String("error", e.Err))
	}

	w.logger.Info("search", fields...)
}

// Close flushes buffered lines and closes the file.
func (w *Writer) Close() error {
	_ = w.logger.Sync()
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close query log: %w", err)
	}
	return nil
}

// countingSyncer counts write outcomes without changing them.
type countingSyncer struct {
	ws     zapcore.WriteSyncer
	writes *prometheus.CounterVec
}

func (s *countingSyncer) Write(p []byte) (int, error) {
	n, err := s.ws.Write(p)
	if s.writes != nil {
		if err != nil {
			s.writes.WithLabelValues("error").Inc()
		} else {
			s.writes.WithLabelValues("ok").Inc()
		}
	}
	return n, err //nolint:wrapcheck // delegating to underlying WriteSyncer
}

func (s *countingSyncer) Sync() error {
	return s.ws.Sync() //nolint:wrapcheck // delegating to underlying WriteSyncer
}
