/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Feb 16 10:20:31 2018 mstenber
 * Last modified: Fri Feb 16 10:33:40 2018 mstenber
 * Edit time:     8 min
 *
 */

package badger

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/fingon/go-extentfs/codec"
	"github.com/fingon/go-extentfs/storage"
	"github.com/fingon/go-extentfs/storage/storagetest"
	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

func TestBadgerStore(t *testing.T) {
	t.Parallel()
	dir, _ := ioutil.TempDir("", "badger")
	defer os.RemoveAll(dir)

	_, err := NewBadgerStore(dir, 0, nil)
	assert.Equal(t, errors.Cause(err), storage.ErrNoGeometry)

	bs, err := NewBadgerStore(dir, 4, &codec.CompressingCodec{})
	assert.Nil(t, err)
	storagetest.ProdBlockStore(t, bs)
	assert.Nil(t, bs.Close())

	storagetest.ProdPersistence(t, func() storage.BlockStore {
		bs, err := NewBadgerStore(dir, 0, &codec.CompressingCodec{})
		assert.Nil(t, err)
		return bs
	})
}
