package config_test

import (
	"testing"

	"github.com/mtlprog/taskindexer/internal/config"
	"github.com/mtlprog/taskindexer/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStore(t *testing.T) {
	b, err := config.ParseStore(" Memory ")
	require.NoError(t, err)
	assert.Equal(t, config.StoreMemory, b)

	b, err = config.ParseStore("postgres")
	require.NoError(t, err)
	assert.Equal(t, config.StorePostgres, b)

	_, err = config.ParseStore("sqlite")
	assert.Error(t, err)
}

func TestContractFlagsCoverEverySource(t *testing.T) {
	seen := make(map[domain.Source]bool)
	for _, f := range config.ContractFlags {
		assert.False(t, seen[f.Source], "duplicate flag for %s", f.Source)
		seen[f.Source] = true
	}
	for _, src := range domain.Sources {
		assert.True(t, seen[src], "no contract flag for %s", src)
	}
}
