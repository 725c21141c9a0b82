package logger

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yungbote/housedesk-backend/internal/platform/ctxutil"
)

// Logger is a key/value logger over zap. Every value passes through the
// redactor before it reaches a sink.
type Logger struct {
	sugar  *zap.SugaredLogger
	redact *redactor
}

// Options override what New reads from the environment.
type Options struct {
	Level zapcore.Level
	// Redact replaces credentials and hashes person identifiers.
	Redact   bool
	HashSalt string
}

// New builds a logger for mode: "prod"/"production" emits JSON, "test" keeps
// warnings and above, anything else is the development console.
// LOG_LEVEL, LOG_REDACTION_ENABLED and LOG_HASH_SALT tune it.
func New(mode string) (*Logger, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	def := zapcore.DebugLevel
	switch mode {
	case "prod", "production":
		def = zapcore.InfoLevel
	case "test":
		def = zapcore.WarnLevel
	}
	opts := Options{
		Level:    def,
		Redact:   !isOff(os.Getenv("LOG_REDACTION_ENABLED")),
		HashSalt: strings.TrimSpace(os.Getenv("LOG_HASH_SALT")),
	}
	if mode != "test" {
		opts.Level = levelFromEnv(def)
	}
	return NewWithOptions(mode, opts)
}

func NewWithOptions(mode string, opts Options) (*Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if mode == "prod" || mode == "production" {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(opts.Level)
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: z.Sugar(), redact: &redactor{enabled: opts.Redact, salt: opts.HashSalt}}, nil
}

// Nop returns a logger that drops every entry.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar(), redact: &redactor{}}
}

func levelFromEnv(def zapcore.Level) zapcore.Level {
	raw := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if raw == "" {
		return def
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
		return def
	}
	return lvl
}

func isOff(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "0", "false", "no", "off":
		return true
	}
	return false
}

func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, l.redact.kvs(kv)...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, l.redact.kvs(kv)...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, l.redact.kvs(kv)...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, l.redact.kvs(kv)...) }

func (l *Logger) With(kv ...interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(l.redact.kvs(kv)...), redact: l.redact}
}

// WithContext attaches the request id, trace id and caller that the HTTP
// layer stored in ctx. Missing values are skipped.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	var kv []interface{}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		if td.RequestID != "" {
			kv = append(kv, "request_id", td.RequestID)
		}
		if td.TraceID != "" {
			kv = append(kv, "trace_id", td.TraceID)
		}
	}
	if rd := ctxutil.GetRequestData(ctx); rd != nil && rd.Role != "" {
		kv = append(kv, "user_id", rd.UserID.String(), "role", rd.Role)
	}
	if len(kv) == 0 {
		return l
	}
	return l.With(kv...)
}
