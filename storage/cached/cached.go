/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Feb 16 11:02:19 2018 mstenber
 * Last modified: Fri Feb 16 11:40:55 2018 mstenber
 * Edit time:     22 min
 *
 */

package cached

import (
	"github.com/bluele/gcache"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/fingon/go-extentfs/util"
)

// cachedStore is a write-through ARC cache of blocks in front of
// another store. Worth it mainly for the key-value backends where a
// read means a transaction (and possibly decryption).
type cachedStore struct {
	be           storage.BlockStore
	cache        gcache.Cache
	hits, misses util.AtomicInt
}

var _ storage.BlockStore = &cachedStore{}

func NewCachedStore(be storage.BlockStore, size int) storage.BlockStore {
	return &cachedStore{be: be, cache: gcache.New(size).ARC().Build()}
}

func (self *cachedStore) BlockCount() uint64 {
	return self.be.BlockCount()
}

func (self *cachedStore) ReadBlock(idx uint64) ([]byte, error) {
	if v, err := self.cache.Get(idx); err == nil {
		self.hits.Add(1)
		return append([]byte(nil), v.([]byte)...), nil
	}
	self.misses.Add(1)
	b, err := self.be.ReadBlock(idx)
	if err != nil {
		return nil, err
	}
	mlog.Printf2("storage/cached/cached", "miss %d", idx)
	self.cache.Set(idx, append([]byte(nil), b...))
	return b, nil
}

func (self *cachedStore) WriteBlock(idx uint64, data []byte) error {
	if err := self.be.WriteBlock(idx, data); err != nil {
		self.cache.Remove(idx)
		return err
	}
	self.cache.Set(idx, append([]byte(nil), data...))
	return nil
}

func (self *cachedStore) Flush() error {
	return self.be.Flush()
}

func (self *cachedStore) Close() error {
	self.cache.Purge()
	return self.be.Close()
}

// Stats returns the read hit and miss counts of a cached store; zeroes
// for any other store.
func Stats(bs storage.BlockStore) (hits, misses int64) {
	self, ok := bs.(*cachedStore)
	if !ok {
		return 0, 0
	}
	return self.hits.Get(), self.misses.Get()
}
