package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_EmptyURLMeansDisabled(t *testing.T) {
	p, err := New(context.Background(), DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, p)

	assert.Error(t, p.Health(context.Background()), "nil pool reports not configured")
	assert.NoError(t, p.Close())
}
