package fsmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDf = `Filesystem     1B-blocks        Used    Available Use% Mounted on
/dev/sda1    107374182400 53687091200  53687091200  50% /
/dev/sdb1     10737418240  1073741824   9663676416  10% /mnt/data
`

func TestParseDf(t *testing.T) {
	mounts, err := parseDf([]byte(sampleDf))
	require.NoError(t, err)
	require.Len(t, mounts, 2)
	assert.Equal(t, "/", mounts[0].usage.Mount)
	assert.EqualValues(t, 53687091200, mounts[0].usage.Available)
	assert.Equal(t, "/mnt/data", mounts[1].usage.Mount)
}

func TestMatchMount_PrefersMostSpecificMount(t *testing.T) {
	mounts, err := parseDf([]byte(sampleDf))
	require.NoError(t, err)

	usage, ok := matchMount(mounts, "/mnt/data/jobs/1")
	require.True(t, ok)
	assert.Equal(t, "/mnt/data", usage.Mount)

	usage, ok = matchMount(mounts, "/home/agent")
	require.True(t, ok)
	assert.Equal(t, "/", usage.Mount)
}

func TestMatchMount_NoMatch(t *testing.T) {
	_, ok := matchMount(nil, "/anything")
	assert.False(t, ok)
}
