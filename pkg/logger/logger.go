package logger

import (
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// New construit un *slog.Logger adossé à zap.
// env "local" : console lisible + debug. Sinon : JSON production, info.
func New(env, service string) (*slog.Logger, func(), error) {
	var cfg zap.Config
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "time"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	z = z.With(zap.String("service", service), zap.String("env", env))

	handler := zapslog.NewHandler(z.Core(), zapslog.WithCaller(env == "local"))
	sync := func() { _ = z.Sync() }
	return slog.New(handler), sync, nil
}

// Init remplace le logger slog par défaut. Le retour doit être appelé à l'arrêt.
func Init(env, service string) func() {
	l, sync, err := New(env, service)
	if err != nil {
		slog.Error("Failed to init zap logger, keeping default", "error", err)
		return func() {}
	}
	slog.SetDefault(l)
	return sync
}
