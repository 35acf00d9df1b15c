package main

import (
	"go/format"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcesAreGofmted(t *testing.T) {
	for _, p := range []string{
		"main_test.go",
		"../../internal/persistence/chunkdb/sqlite.go",
	} {
		src, err := os.ReadFile(p)
		require.NoError(t, err)
		out, err := format.Source(src)
		require.NoError(t, err, p)
		assert.Equal(t, string(out), string(src), p)
	}
}
