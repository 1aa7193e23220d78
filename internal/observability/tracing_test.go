package observability

import (
	"context"
	"testing"

	"github.com/emojiforge/emojiforge/backend/go-services/internal/config"
	"github.com/stretchr/testify/require"
)

func TestInitTracing_DisabledIsNoop(t *testing.T) {
	stop := InitTracing(context.Background(), config.TracingConfig{Enabled: false}, "test", "dev")
	require.NotNil(t, stop)
	require.NoError(t, stop(context.Background()))
}
