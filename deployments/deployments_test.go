package deployments

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/umbracle/ethgo"
)

func TestMap_RecordAndReload(t *testing.T) {
	t.Parallel()

	buildDir := t.TempDir()

	m, err := Load(buildDir)
	require.NoError(t, err)

	_, ok := m.Latest(42, "TokenFarm")
	assert.False(t, ok)

	m.Record(42, "TokenFarm", ethgo.Address{0x1})
	m.Record(42, "TokenFarm", ethgo.Address{0x2})
	m.Record(42, "DappToken", ethgo.Address{0x3})
	m.Record(4, "TokenFarm", ethgo.Address{0x4})
	require.NoError(t, m.Save())

	reloaded, err := Load(buildDir)
	require.NoError(t, err)

	latest, ok := reloaded.Latest(42, "TokenFarm")
	require.True(t, ok)
	assert.Equal(t, ethgo.Address{0x2}, latest)
	assert.Equal(t, []string{"DappToken", "TokenFarm"}, reloaded.Contracts(42))
	assert.Equal(t, []string{"TokenFarm"}, reloaded.Contracts(4))
	assert.Empty(t, reloaded.Contracts(1))
}

func TestLoad_Corrupted(t *testing.T) {
	t.Parallel()

	buildDir := t.TempDir()
	require.NoError(t, os.MkdirAll(buildDir+"/"+Dir, 0750))
	require.NoError(t, os.WriteFile(Path(buildDir), []byte("{"), 0600))

	_, err := Load(buildDir)
	require.ErrorContains(t, err, "failed to decode deployment map")
}
