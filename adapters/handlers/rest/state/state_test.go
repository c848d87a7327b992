//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package state

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entsequence "github.com/weaviate/seqalloc/entities/sequence"
	"github.com/weaviate/seqalloc/usecases/config"
	"github.com/weaviate/seqalloc/usecases/sequence"
)

func testConfig(backend, dataPath string, monitoring bool) *config.SeqallocConfig {
	cfg := &config.SeqallocConfig{Config: config.Config{
		Persistence: config.Persistence{Backend: backend, DataPath: dataPath},
		Spaces: []sequence.SpaceConfig{
			{Name: "meta-0", NormalWidth: 50, SuperWidth: 1000},
		},
		Monitoring: config.Monitoring{Enabled: monitoring},
	}}
	cfg.Config.ApplyDefaults()
	return cfg
}

func TestStateLifecycle(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{config.BackendBolt, config.BackendSQLite, config.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			logger, _ := test.NewNullLogger()
			dir := t.TempDir()

			appState, err := New(testConfig(backend, dir, true), logger)
			require.NoError(t, err)
			require.NoError(t, appState.OpenServer(ctx))

			client := appState.OpenClient(sequence.NewLocalRemote(appState.Server))
			n, err := client.AllocateOne(ctx, "meta-0")
			require.NoError(t, err)
			assert.Equal(t, uint64(0), n)
			require.NoError(t, appState.Close())

			if backend == config.BackendMemory {
				return
			}

			// a second process on the same data path continues after the lease
			appState, err = New(testConfig(backend, dir, false), logger)
			require.NoError(t, err)
			require.NoError(t, appState.OpenServer(ctx))
			defer appState.Close()

			r, err := appState.Server.AllocateMeta(ctx, nil, "meta-0")
			require.NoError(t, err)
			assert.Equal(t, entsequence.Range{Space: "meta-0", Start: 1000, End: 1050}, r)
		})
	}
}

func TestStateMetricsRegistry(t *testing.T) {
	logger, _ := test.NewNullLogger()

	enabled, err := New(testConfig(config.BackendMemory, "", true), logger)
	require.NoError(t, err)
	enabled.Metrics.ObserveBoundary("meta-0", 1)
	families, err := enabled.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	disabled, err := New(testConfig(config.BackendMemory, "", false), logger)
	require.NoError(t, err)
	disabled.Metrics.ObserveBoundary("meta-0", 1)
	families, err = disabled.Registry.Gather()
	require.NoError(t, err)
	assert.Empty(t, families)
}

func TestStateOpenServerFailures(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()

	cfg := testConfig("postgres", t.TempDir(), false)
	appState, err := New(cfg, logger)
	require.NoError(t, err)
	assert.Error(t, appState.OpenServer(ctx))
	assert.Nil(t, appState.Server)

	cfg = testConfig(config.BackendMemory, "", false)
	cfg.Config.Spaces = append(cfg.Config.Spaces, cfg.Config.Spaces[0])
	appState, err = New(cfg, logger)
	require.NoError(t, err)
	assert.Error(t, appState.OpenServer(ctx))
	assert.NoError(t, appState.Close())
}
