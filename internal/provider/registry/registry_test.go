package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/promptlab/internal/domain"
	"github.com/davidbz/promptlab/internal/provider/registry"
)

// stubProvider is a minimal Provider for registry tests.
type stubProvider struct {
	name string
}

func (s *stubProvider) Generate(_ context.Context, _ *domain.GenerationRequest) (<-chan domain.StreamChunk, error) {
	out := make(chan domain.StreamChunk, 1)
	out <- domain.StreamChunk{IsComplete: true}
	close(out)
	return out, nil
}

func (s *stubProvider) Name() string {
	return s.name
}

func (s *stubProvider) IsModelSupported(_ context.Context, _ string) bool {
	return true
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	t.Run("should register and retrieve a provider", func(t *testing.T) {
		reg := registry.NewRegistry()
		provider := &stubProvider{name: "openai"}

		require.NoError(t, reg.Register(ctx, provider))

		got, err := reg.Get(ctx, "openai")
		require.NoError(t, err)
		require.Same(t, domain.Provider(provider), got)
	})

	t.Run("should reject nil provider", func(t *testing.T) {
		reg := registry.NewRegistry()
		require.Error(t, reg.Register(ctx, nil))
	})

	t.Run("should reject duplicate registration", func(t *testing.T) {
		reg := registry.NewRegistry()
		require.NoError(t, reg.Register(ctx, &stubProvider{name: "echo"}))
		require.Error(t, reg.Register(ctx, &stubProvider{name: "echo"}))
	})

	t.Run("should fail on unknown provider", func(t *testing.T) {
		reg := registry.NewRegistry()
		_, err := reg.Get(ctx, "missing")
		require.Error(t, err)
	})

	t.Run("should list registered providers", func(t *testing.T) {
		reg := registry.NewRegistry()
		require.NoError(t, reg.Register(ctx, &stubProvider{name: "openai"}))
		require.NoError(t, reg.Register(ctx, &stubProvider{name: "echo"}))

		names, err := reg.List(ctx)
		require.NoError(t, err)
		require.ElementsMatch(t, []string{"openai", "echo"}, names)
	})
}
