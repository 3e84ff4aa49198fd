package hashio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"
)

func TestSHA256(t *testing.T) {
	dir := fs.NewDir(t, "hashio", fs.WithFile("build.zip", "hello\n"))
	defer dir.Remove()

	sum, err := SHA256(dir.Join("build.zip"))
	require.NoError(t, err)
	assert.Equal(t, "5891b5b522d5df086d0ff0b110fbd9d21bb4fc7163af34d08286a2e846f6be03", sum)

	_, err = SHA256(dir.Join("missing.zip"))
	assert.Error(t, err)
}
