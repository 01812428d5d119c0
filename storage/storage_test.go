/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 12 11:52:40 2018 mstenber
 * Last modified: Thu Feb 15 14:22:19 2018 mstenber
 * Edit time:     11 min
 *
 */

package storage

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

func TestCheck(t *testing.T) {
	t.Parallel()
	assert.Nil(t, CheckRead(2, 1))
	assert.Equal(t, errors.Cause(CheckRead(2, 2)), ErrOutOfRange)
	assert.Nil(t, CheckWrite(2, 0, make([]byte, BlockSize)))
	assert.Equal(t, errors.Cause(CheckWrite(2, 0, make([]byte, 12))), ErrBadBlockSize)
	assert.Equal(t, errors.Cause(CheckWrite(2, 3, make([]byte, BlockSize))), ErrOutOfRange)
}

func TestBlockKeyOrder(t *testing.T) {
	t.Parallel()
	assert.True(t, string(BlockKey(255)) < string(BlockKey(256)))
	assert.Equal(t, len(BlockKey(0)), 8)
}

func TestGeometry(t *testing.T) {
	t.Parallel()
	_, _, err := ResolveGeometry(nil, 0)
	assert.Equal(t, err, ErrNoGeometry)

	g, isNew, err := ResolveGeometry(nil, 42)
	assert.Nil(t, err)
	assert.True(t, isNew)
	assert.Equal(t, g, Geometry{Blocks: 42, BlockSize: BlockSize})

	b, err := g.Encode()
	assert.Nil(t, err)

	g2, isNew, err := ResolveGeometry(b, 0)
	assert.Nil(t, err)
	assert.True(t, !isNew)
	assert.Equal(t, g2, g)

	_, _, err = ResolveGeometry(b, 42)
	assert.Nil(t, err)

	_, _, err = ResolveGeometry(b, 43)
	assert.Equal(t, errors.Cause(err), ErrGeometryMismatch)
}
