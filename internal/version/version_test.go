package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetVersion(t *testing.T) {
	// Tests run without module version information.
	require.Equal(t, Default, GetVersion())

	t.Cleanup(func() { version = "" })
	version = "v1.2.3"
	require.Equal(t, "v1.2.3", GetVersion())
}

func TestVersionMissing(t *testing.T) {
	require.True(t, versionMissing(""))
	require.True(t, versionMissing("(devel)"))
	require.False(t, versionMissing("v0.1.0"))
}
