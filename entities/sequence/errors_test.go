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

package sequence

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds(t *testing.T) {
	err := fmt.Errorf("%w: reserve [1, 2): %w", ErrAllocation, ErrTransaction)
	assert.Equal(t, []string{"allocation", "transaction"}, Kinds(err))
	assert.Equal(t, []string{"invalid_range"}, Kinds(fmt.Errorf("%w: empty", ErrInvalidRange)))
	assert.Empty(t, Kinds(errors.New("decode body")))
	assert.Empty(t, Kinds(nil))
}

func TestFromKinds(t *testing.T) {
	for _, k := range kinds {
		assert.ErrorIs(t, FromKinds([]string{k.kind}), k.err, k.kind)
	}

	err := FromKinds([]string{"allocation", "bogus", "transaction"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.ErrorIs(t, err, ErrTransaction)
	assert.NotErrorIs(t, err, ErrSpaceExhausted)

	assert.NoError(t, FromKinds(nil))
	assert.NoError(t, FromKinds([]string{"bogus"}))
}
