/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 23 15:10:01 2017 mstenber
 * Last modified: Fri Feb 16 10:31:12 2018 mstenber
 * Edit time:     181 min
 *
 */

package badger

import (
	"os"

	"github.com/dgraph-io/badger"
	"github.com/fingon/go-extentfs/codec"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/fingon/go-extentfs/util"
	"github.com/pkg/errors"
)

var blockPrefix = []byte("b")
var geometryKey = []byte("mgeometry")

// badgerStore provides the block image in a badger directory.
//
// - key "b" + BlockKey(idx) -> codec encoded block (absent if zero)
// - key "mgeometry" -> CBOR Geometry
type badgerStore struct {
	db     *badger.DB
	codec  codec.Codec
	blocks uint64
}

var _ storage.BlockStore = &badgerStore{}

func NewBadgerStore(dir string, blocks uint64, c codec.Codec) (storage.BlockStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.Wrapf(err, "mkdir %s", dir)
	}
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	opts.SyncWrites = true
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "badger.Open %s", dir)
	}
	if c == nil {
		c = codec.CodecChain{}.Init()
	}
	self := &badgerStore{db: db, codec: c}
	stored, err := self.get(geometryKey)
	if err != nil {
		db.Close()
		return nil, err
	}
	g, isNew, err := storage.ResolveGeometry(stored, blocks)
	if err != nil {
		db.Close()
		return nil, err
	}
	self.blocks = g.Blocks
	if isNew {
		b, err := g.Encode()
		if err == nil {
			err = self.set(geometryKey, b)
		}
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	mlog.Printf2("storage/badger/badger", "NewBadgerStore %s: %d blocks", dir, self.blocks)
	return self, nil
}

// get returns nil, nil for missing keys.
func (self *badgerStore) get(k []byte) (v []byte, err error) {
	err = self.db.View(func(txn *badger.Txn) error {
		i, err := txn.Get(k)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err == nil {
			v, err = i.ValueCopy(nil)
		}
		return err
	})
	return
}

func (self *badgerStore) set(k, v []byte) error {
	return self.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, v)
	})
}

func (self *badgerStore) delete(k []byte) error {
	return self.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}

func blockKey(idx uint64) []byte {
	return append(append([]byte(nil), blockPrefix...), storage.BlockKey(idx)...)
}

func (self *badgerStore) BlockCount() uint64 {
	return self.blocks
}

func (self *badgerStore) ReadBlock(idx uint64) ([]byte, error) {
	if err := storage.CheckRead(self.blocks, idx); err != nil {
		return nil, err
	}
	bv, err := self.get(blockKey(idx))
	if err != nil {
		return nil, errors.Wrapf(err, "get block %d", idx)
	}
	if bv == nil {
		return make([]byte, storage.BlockSize), nil
	}
	ret, err := self.codec.DecodeBytes(bv, storage.BlockKey(idx))
	if err != nil {
		return nil, errors.Wrapf(err, "decode block %d", idx)
	}
	if len(ret) != storage.BlockSize {
		return nil, errors.Wrapf(storage.ErrBadBlockSize, "stored block %d", idx)
	}
	return ret, nil
}

func (self *badgerStore) WriteBlock(idx uint64, data []byte) error {
	if err := storage.CheckWrite(self.blocks, idx, data); err != nil {
		return err
	}
	if util.IsZero(data) {
		mlog.Printf2("storage/badger/badger", "WriteBlock %d: zero, deleting", idx)
		return self.delete(blockKey(idx))
	}
	v, err := self.codec.EncodeBytes(data, storage.BlockKey(idx))
	if err != nil {
		return errors.Wrapf(err, "encode block %d", idx)
	}
	// badger keeps the slice until the transaction commits
	v = append([]byte(nil), v...)
	return self.set(blockKey(idx), v)
}

// Flush is a no-op; writes are synchronous (SyncWrites).
func (self *badgerStore) Flush() error {
	return nil
}

func (self *badgerStore) Close() error {
	mlog.Printf2("storage/badger/badger", "badgerStore.Close")
	return self.db.Close()
}
