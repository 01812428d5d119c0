/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 12 12:31:17 2018 mstenber
 * Last modified: Thu Feb 15 14:40:12 2018 mstenber
 * Edit time:     9 min
 *
 */

package inmemory

import (
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/fingon/go-extentfs/util"
)

// inMemoryStore keeps the whole image in one byte slice; mostly
// useful for tests.
type inMemoryStore struct {
	lock   util.RWMutexLocked
	data   []byte
	blocks uint64
}

var _ storage.BlockStore = &inMemoryStore{}

func NewInMemoryStore(blocks uint64) storage.BlockStore {
	mlog.Printf2("storage/inmemory/inmemory", "NewInMemoryStore %d", blocks)
	return &inMemoryStore{data: make([]byte, blocks*storage.BlockSize),
		blocks: blocks}
}

func (self *inMemoryStore) BlockCount() uint64 {
	return self.blocks
}

func (self *inMemoryStore) ReadBlock(idx uint64) ([]byte, error) {
	if err := storage.CheckRead(self.blocks, idx); err != nil {
		return nil, err
	}
	defer self.lock.RLocked()()
	b := make([]byte, storage.BlockSize)
	copy(b, self.data[idx*storage.BlockSize:])
	return b, nil
}

func (self *inMemoryStore) WriteBlock(idx uint64, data []byte) error {
	if err := storage.CheckWrite(self.blocks, idx, data); err != nil {
		return err
	}
	defer self.lock.Locked()()
	copy(self.data[idx*storage.BlockSize:], data)
	return nil
}

func (self *inMemoryStore) Flush() error {
	return nil
}

func (self *inMemoryStore) Close() error {
	return nil
}
