/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 12 13:10:12 2018 mstenber
 * Last modified: Thu Feb 15 15:22:01 2018 mstenber
 * Edit time:     14 min
 *
 */

package file

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/fingon/go-extentfs/storage"
	"github.com/fingon/go-extentfs/storage/storagetest"
	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

func TestFileStore(t *testing.T) {
	t.Parallel()
	dir, _ := ioutil.TempDir("", "file")
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "image")

	bs, err := NewFileStore(path, 5)
	assert.Nil(t, err)
	storagetest.ProdBlockStore(t, bs)

	// second opener is refused
	_, err = NewFileStore(path, 0)
	assert.Equal(t, errors.Cause(err), storage.ErrLocked)
	assert.Nil(t, bs.Close())

	storagetest.ProdPersistence(t, func() storage.BlockStore {
		bs, err := NewFileStore(path, 0)
		assert.Nil(t, err)
		return bs
	})

	_, err = NewFileStore(path, 6)
	assert.Equal(t, errors.Cause(err), storage.ErrGeometryMismatch)
}

func TestFileStoreBadSize(t *testing.T) {
	t.Parallel()
	dir, _ := ioutil.TempDir("", "file")
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "image")

	_, err := NewFileStore(path, 0)
	assert.Equal(t, errors.Cause(err), storage.ErrBadImageSize)

	assert.Nil(t, ioutil.WriteFile(path, []byte("abc"), 0644))
	_, err = NewFileStore(path, 0)
	assert.Equal(t, errors.Cause(err), storage.ErrBadImageSize)
}
