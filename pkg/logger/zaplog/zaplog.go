package zaplog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements logger.LoggerInstance on top of zap's sugared logger.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

// ZapLoggerParams contains configuration for creating a ZapLogger.
type ZapLoggerParams struct {
	Debug bool
	// JSON selects the production encoder; otherwise the development
	// console encoder is used.
	JSON bool
}

// NewZapLogger builds a zap logger writing to stderr.
func NewZapLogger(params ZapLoggerParams) (*ZapLogger, error) {
	var config zap.Config
	if params.JSON {
		config = zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	} else {
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if params.Debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := config.Build(zap.AddCallerSkip(2))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{logger: l.Sugar()}, nil
}

// NewWithCore wraps an existing core, e.g. an observer in tests.
func NewWithCore(core zapcore.Core) *ZapLogger {
	return &ZapLogger{logger: zap.New(core).Sugar()}
}

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error {
	return z.logger.Sync()
}

func (z *ZapLogger) Log(message string, keyvals ...any) {
	z.logger.Infow(message, keyvals...)
}

func (z *ZapLogger) Info(message string, keyvals ...any) {
	z.logger.Infow(message, keyvals...)
}

func (z *ZapLogger) Warn(message string, keyvals ...any) {
	z.logger.Warnw(message, keyvals...)
}

func (z *ZapLogger) Error(message string, keyvals ...any) {
	z.logger.Errorw(message, keyvals...)
}

func (z *ZapLogger) Debug(message string, keyvals ...any) {
	z.logger.Debugw(message, keyvals...)
}

// Fatal logs and exits the process.
func (z *ZapLogger) Fatal(message string, keyvals ...any) {
	z.logger.Fatalw(message, keyvals...)
}
