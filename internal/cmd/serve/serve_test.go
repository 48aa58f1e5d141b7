package serve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommand_RequiresDBURL(t *testing.T) {
	cmd := Command()
	err := cmd.Run(context.Background(), []string{"serve"})
	require.Error(t, err)
}

func TestCommand_Flags(t *testing.T) {
	cmd := Command()
	require.Equal(t, "serve", cmd.Name)

	names := make(map[string]bool)
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			names[n] = true
		}
	}
	for _, want := range []string{
		"http-port", "mcp-port", "db-url", "embedding-kind",
		"vector-kind", "cache-kind", "encryption-kind", "metrics-enabled",
	} {
		require.True(t, names[want], "expected flag %q to be registered", want)
	}
}
