// Package logging builds the zap logger used for diagnostics. User-facing
// command output is printed directly; everything else goes through here.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/san-kum/pidloop/pid"
)

// New returns a logger writing to stderr at the given level ("debug",
// "info", "warn", "error"). json selects the production encoder.
func New(level string, json bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	cfg := zap.NewDevelopmentConfig()
	if json {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// TuningHook logs every tuning report at debug level.
func TuningHook(logger *zap.Logger) pid.DebugHook {
	return func(r pid.Report) {
		logger.Debug("tuning parameters set",
			zap.Float64("kp", r.Kp),
			zap.Float64("ki", r.Ki),
			zap.Float64("kd", r.Kd),
			zap.Float64("zp", r.Zp),
			zap.Float64("zi", r.Zi),
			zap.Float64("zd", r.Zd),
			zap.Duration("sample_period", r.SamplePeriod),
			zap.Stringer("direction", r.Direction),
		)
	}
}
