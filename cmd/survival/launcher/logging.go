package launcher

import (
	"fmt"
	"time"

	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

// sentryLevels are forwarded to Sentry when a DSN is configured.
var sentryLevels = []logrus.Level{
	logrus.PanicLevel,
	logrus.FatalLevel,
	logrus.ErrorLevel,
}

func newLogger(cfg LoggingConfig) (*logrus.Logger, error) {
	log := logrus.New()

	switch cfg.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   cfg.Color,
			DisableColors: !cfg.Color,
		})
	default:
		return nil, fmt.Errorf("unknown log format %q (valid: text, json)", cfg.Format)
	}

	if cfg.Verbosity < int(logrus.PanicLevel) || cfg.Verbosity > int(logrus.TraceLevel) {
		return nil, fmt.Errorf("log verbosity %d out of range 0..%d", cfg.Verbosity, logrus.TraceLevel)
	}
	log.SetLevel(logrus.Level(cfg.Verbosity))

	if cfg.Sentry != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.Sentry, sentryLevels)
		if err != nil {
			return nil, fmt.Errorf("sentry hook: %w", err)
		}
		hook.Timeout = 5 * time.Second
		hook.StacktraceConfiguration.Enable = true
		log.AddHook(hook)
	}
	return log, nil
}
