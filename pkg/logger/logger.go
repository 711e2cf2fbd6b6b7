package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Config opciones de salida del logger.
//
// Pretty fuerza la salida de consola aunque Env no sea development.
// Output permite capturar los logs (por defecto os.Stdout).
type Config struct {
	Env    string
	Level  string
	Pretty bool
	Output io.Writer
}

// Logger envoltura de zerolog que se inyecta en cada caso de uso.
type Logger struct {
	zl zerolog.Logger
}

func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty || cfg.Env == "development" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}

	zl := zerolog.New(out).
		Level(levelFrom(cfg.Level)).
		With().
		Timestamp().
		Logger()

	// librerías que escriben con el logger global de zerolog
	log.Logger = zl
	return &Logger{zl: zl}
}

// Nop descarta todo; lo usan los tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// levelFrom acepta los nombres de zerolog sin distinguir mayúsculas; un valor
// vacío o desconocido queda en info.
func levelFrom(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) Trace() *zerolog.Event { return l.zl.Trace() }
func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.zl.Fatal() }

// With sublogger con el campo component.
func (l *Logger) With(component string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{zl: l.zl.With().Str("component", component).Logger()}
}

// Ctx agrega trace_id y span_id cuando ctx lleva un span activo, para cruzar
// los logs de una liquidación con su traza.
func (l *Logger) Ctx(ctx context.Context) *Logger {
	if l == nil {
		return Nop()
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}
	return &Logger{zl: l.zl.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()}
}

// Zerolog acceso directo al logger subyacente.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}
