package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/clubradar/internal/config"
)

func TestParseHeaders(t *testing.T) {
	assert.Empty(t, ParseHeaders(""))
	assert.Equal(t,
		map[string]string{"Authorization": "Bearer x=y", "team": "clubs"},
		ParseHeaders(" Authorization = Bearer x=y ,team=clubs,broken,=nokey"))
}

func TestSetupDisabled(t *testing.T) {
	tel, err := Setup(context.Background(), config.TelemetryConfig{})
	require.NoError(t, err)
	assert.Nil(t, tel)
	assert.NoError(t, tel.Shutdown(context.Background()))
}
