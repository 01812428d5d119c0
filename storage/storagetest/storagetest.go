/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 12 12:10:55 2018 mstenber
 * Last modified: Thu Feb 15 15:02:41 2018 mstenber
 * Edit time:     26 min
 *
 */

// storagetest contains the behaviour every storage.BlockStore is
// expected to have, usable from the backends' own tests.
package storagetest

import (
	"bytes"
	"testing"

	"github.com/fingon/go-extentfs/storage"
	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

func PatternBlock(seed byte) []byte {
	b := make([]byte, storage.BlockSize)
	for i := range b {
		b[i] = seed + byte(i*7)
	}
	return b
}

// ProdBlockStore exercises a store with at least two blocks that has
// not been written to yet.
func ProdBlockStore(t *testing.T, bs storage.BlockStore) {
	n := bs.BlockCount()
	assert.True(t, n >= 2)

	b, err := bs.ReadBlock(0)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(b, make([]byte, storage.BlockSize)))

	p0 := PatternBlock(1)
	p1 := PatternBlock(2)
	assert.Nil(t, bs.WriteBlock(0, p0))
	assert.Nil(t, bs.WriteBlock(n-1, p1))

	// written buffer is not retained
	p0[0]++
	b, err = bs.ReadBlock(0)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(b, PatternBlock(1)))

	// returned buffer is a private copy
	b[0]++
	b, err = bs.ReadBlock(0)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(b, PatternBlock(1)))

	b, err = bs.ReadBlock(n - 1)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(b, p1))

	// overwrite with zeroes
	assert.Nil(t, bs.WriteBlock(n-1, make([]byte, storage.BlockSize)))
	b, err = bs.ReadBlock(n - 1)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(b, make([]byte, storage.BlockSize)))

	_, err = bs.ReadBlock(n)
	assert.Equal(t, errors.Cause(err), storage.ErrOutOfRange)
	err = bs.WriteBlock(n, PatternBlock(3))
	assert.Equal(t, errors.Cause(err), storage.ErrOutOfRange)
	err = bs.WriteBlock(0, []byte("short"))
	assert.Equal(t, errors.Cause(err), storage.ErrBadBlockSize)

	assert.Nil(t, bs.Flush())
}

// ProdPersistence checks that what was written through one instance
// can be read through the next; open must return a fresh instance of
// the same underlying storage.
func ProdPersistence(t *testing.T, open func() storage.BlockStore) {
	bs := open()
	n := bs.BlockCount()
	assert.Nil(t, bs.WriteBlock(1, PatternBlock(9)))
	assert.Nil(t, bs.Flush())
	assert.Nil(t, bs.Close())

	bs = open()
	assert.Equal(t, bs.BlockCount(), n)
	b, err := bs.ReadBlock(1)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(b, PatternBlock(9)))
	assert.Nil(t, bs.Close())
}
