package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, parseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, parseLevel("desconocido"))
}

func TestComponent_AgregaCampos(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, Config{Level: "info", App: "inventario"})

	engine := l.Component("engine")
	engine.Info().Str("document_id", "d1").Msg("documento finalizado")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "inventario", entry["app"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "d1", entry["document_id"])
	assert.Equal(t, "documento finalizado", entry["message"])
}

func TestNivel_FiltraEventos(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(&buf, Config{Level: "warn"})
	l.Info().Msg("no debe aparecer")
	assert.Zero(t, buf.Len())
	l.Warn().Msg("sí aparece")
	assert.NotZero(t, buf.Len())
}
