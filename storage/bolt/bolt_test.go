/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Feb 16 09:30:02 2018 mstenber
 * Last modified: Fri Feb 16 09:55:47 2018 mstenber
 * Edit time:     16 min
 *
 */

package bolt

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/fingon/go-extentfs/codec"
	"github.com/fingon/go-extentfs/storage"
	"github.com/fingon/go-extentfs/storage/storagetest"
	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

func TestBoltStore(t *testing.T) {
	t.Parallel()
	dir, _ := ioutil.TempDir("", "bolt")
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "bolt.db")

	_, err := NewBoltStore(path, 0, nil)
	assert.Equal(t, errors.Cause(err), storage.ErrNoGeometry)

	bs, err := NewBoltStore(path, 6, nil)
	assert.Nil(t, err)
	storagetest.ProdBlockStore(t, bs)
	// only block 0 is non-zero now
	assert.Equal(t, StoredBlocks(bs), 1)
	assert.Nil(t, bs.Close())

	storagetest.ProdPersistence(t, func() storage.BlockStore {
		bs, err := NewBoltStore(path, 0, nil)
		assert.Nil(t, err)
		return bs
	})

	_, err = NewBoltStore(path, 7, nil)
	assert.Equal(t, errors.Cause(err), storage.ErrGeometryMismatch)
}

func TestBoltStoreCodec(t *testing.T) {
	t.Parallel()
	dir, _ := ioutil.TempDir("", "bolt")
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "bolt.db")

	ec, err := codec.EncryptingCodec{}.Init([]byte("pw"), []byte("salt"), 16)
	assert.Nil(t, err)
	c := codec.CodecChain{}.Init(ec, &codec.CompressingCodec{})
	bs, err := NewBoltStore(path, 3, c)
	assert.Nil(t, err)
	storagetest.ProdBlockStore(t, bs)
	assert.Nil(t, bs.Close())

	// wrong key does not decode
	ec2, err := codec.EncryptingCodec{}.Init([]byte("wrong"), []byte("salt"), 16)
	assert.Nil(t, err)
	bs, err = NewBoltStore(path, 0, ec2)
	assert.Nil(t, err)
	_, err = bs.ReadBlock(0)
	assert.True(t, err != nil)
	// zero blocks need no key
	_, err = bs.ReadBlock(1)
	assert.Nil(t, err)
	assert.Nil(t, bs.Close())
}
