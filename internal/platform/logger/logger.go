package logger

import (
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

// New returns a structured slog.Logger backed by zap.
// Development mode uses the console encoder at debug level; everything else
// emits production JSON at info level.
func New(env string) (*slog.Logger, func(), error) {
	var (
		z   *zap.Logger
		err error
	)
	if env == "development" {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, err
	}
	handler := zapslog.NewHandler(z.Core(), zapslog.WithCaller(env == "development"))
	flush := func() { _ = z.Sync() }
	return slog.New(handler).With("service", "instructor-verification"), flush, nil
}

// NewNop returns a logger that discards output (tests, tools).
func NewNop() *slog.Logger {
	return slog.New(zapslog.NewHandler(zap.NewNop().Core()))
}
