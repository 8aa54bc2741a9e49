// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchiveQueryStopsOnCancelledContext(t *testing.T) {
	t.Chdir(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	archiveQueryCmd.SetContext(ctx)

	err := runArchiveQuery(archiveQueryCmd, []string{"flood"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
