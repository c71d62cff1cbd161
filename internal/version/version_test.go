package version

import (
	"bytes"
	"runtime"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestFull includes the version and the toolchain.
func TestFull(t *testing.T) {
	t.Parallel()

	require.NotEmpty(t, Short())
	require.Contains(t, Full(), Short())
	require.Contains(t, Full(), runtime.Version())

	info := Get()
	require.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	require.NotEmpty(t, info.Commit)
}

// TestKV pairs every key with a value.
func TestKV(t *testing.T) {
	t.Parallel()

	kv := KV()
	require.Len(t, kv, 6)
	require.Equal(t, "version", kv[0])
	require.Equal(t, Short(), kv[1])
}

// TestShortRevision trims long hashes only.
func TestShortRevision(t *testing.T) {
	t.Parallel()

	require.Equal(t, "0123456", shortRevision("0123456789abcdef"))
	require.Equal(t, "abc", shortRevision("abc"))
}

// TestAttachCobraVersionCommand prints the short or full form.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		args []string
		want string
	}{
		{args: []string{"version"}, want: Full()},
		{args: []string{"version", "--short"}, want: Short()},
	} {
		root := &cobra.Command{Use: "edge-telemetry"}
		AttachCobraVersionCommand(root)

		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs(tt.args)

		require.NoError(t, root.Execute())
		require.Equal(t, tt.want, strings.TrimSpace(out.String()))
	}
}
