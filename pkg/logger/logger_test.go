package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/LuisDaniel15/Software-Pos/pkg/logger"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m))
	return m
}

func TestWith_AgregaComponente(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Env: "production", Level: "info", Output: &buf})

	log.With("settlement").Info().Str("sale_id", "s-1").Msg("venta confirmada")

	m := lastEntry(t, &buf)
	assert.Equal(t, "settlement", m["component"])
	assert.Equal(t, "s-1", m["sale_id"])
	assert.Equal(t, "info", m["level"])
}

func TestNivel_FiltraEventosInferiores(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "WARN", Output: &buf})

	log.Info().Msg("no se escribe")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("sí se escribe")
	assert.NotZero(t, buf.Len())
}

func TestNivel_DesconocidoQuedaEnInfo(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Level: "ruidoso", Output: &buf})

	log.Debug().Msg("descartado")
	assert.Zero(t, buf.Len())
	log.Info().Msg("escrito")
	assert.NotZero(t, buf.Len())
}

func TestCtx_AgregaTraza(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b, 0x0c, 1},
		SpanID:     trace.SpanID{0x01, 0x02},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.Ctx(ctx).Info().Msg("con traza")

	m := lastEntry(t, &buf)
	assert.Equal(t, sc.TraceID().String(), m["trace_id"])
	assert.Equal(t, sc.SpanID().String(), m["span_id"])
}

func TestCtx_SinSpanNoAgregaCampos(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf})

	log.Ctx(context.Background()).Info().Msg("sin traza")

	m := lastEntry(t, &buf)
	assert.NotContains(t, m, "trace_id")
}

func TestNilLogger_NoEntraEnPanico(t *testing.T) {
	var log *logger.Logger
	assert.NotPanics(t, func() {
		log.With("x").Info().Msg("descartado")
		log.Ctx(context.Background()).Info().Msg("descartado")
	})
}
