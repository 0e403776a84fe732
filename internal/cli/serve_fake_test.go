package cli

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeFakeCommand_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	buf := &bytes.Buffer{}
	cmd := NewServeFakeCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"--addr", "127.0.0.1:0"})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, buf.String(), "Fake booking API listening on http://127.0.0.1:")
}

func TestServeFakeCommand_BadAddress(t *testing.T) {
	_, err := execute(t, NewServeFakeCommand(&RootOptions{Format: "text"}), "--addr", "not-an-address")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to listen")
}

func TestServeFakeCommand_Flags(t *testing.T) {
	cmd := NewServeFakeCommand(&RootOptions{})
	assert.Equal(t, ":8080", cmd.Flags().Lookup("addr").DefValue)
	assert.Equal(t, "admin", cmd.Flags().Lookup("user").DefValue)
	assert.Equal(t, "password", cmd.Flags().Lookup("password").DefValue)
}
