/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 22:49:15 2018 mstenber
 * Last modified: Fri Feb 16 09:51:30 2018 mstenber
 * Edit time:     71 min
 *
 */

package bolt

import (
	bbolt "github.com/coreos/bbolt"
	"github.com/fingon/go-extentfs/codec"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/fingon/go-extentfs/util"
	"github.com/pkg/errors"
)

var blocksBucket = []byte("blocks")
var metaBucket = []byte("meta")
var geometryKey = []byte("geometry")

// boltStore provides the block image inside a bbolt database.
//
// - blocks bucket: BlockKey(idx) -> codec encoded block; all-zero
// blocks are not stored at all
// - meta bucket: "geometry" -> CBOR Geometry
type boltStore struct {
	db     *bbolt.DB
	codec  codec.Codec
	blocks uint64
}

var _ storage.BlockStore = &boltStore{}

// NewBoltStore opens the database at path; blocks may be zero for an
// existing store. A nil codec stores blocks as-is.
func NewBoltStore(path string, blocks uint64, c codec.Codec) (storage.BlockStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "bbolt.Open %s", path)
	}
	if c == nil {
		c = codec.CodecChain{}.Init()
	}
	self := &boltStore{db: db, codec: c}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(blocksBucket); err != nil {
			return err
		}
		mb, err := tx.CreateBucketIfNotExists(metaBucket)
		if err != nil {
			return err
		}
		g, isNew, err := storage.ResolveGeometry(mb.Get(geometryKey), blocks)
		if err != nil {
			return err
		}
		self.blocks = g.Blocks
		if !isNew {
			return nil
		}
		b, err := g.Encode()
		if err != nil {
			return err
		}
		return mb.Put(geometryKey, b)
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	mlog.Printf2("storage/bolt/bolt", "NewBoltStore %s: %d blocks", path, self.blocks)
	return self, nil
}

func (self *boltStore) BlockCount() uint64 {
	return self.blocks
}

func (self *boltStore) ReadBlock(idx uint64) (ret []byte, err error) {
	if err = storage.CheckRead(self.blocks, idx); err != nil {
		return
	}
	key := storage.BlockKey(idx)
	var bv []byte
	err = self.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(blocksBucket).Get(key)
		if v != nil {
			bv = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return
	}
	if bv == nil {
		return make([]byte, storage.BlockSize), nil
	}
	ret, err = self.codec.DecodeBytes(bv, key)
	if err != nil {
		return nil, errors.Wrapf(err, "decode block %d", idx)
	}
	if len(ret) != storage.BlockSize {
		return nil, errors.Wrapf(storage.ErrBadBlockSize, "stored block %d", idx)
	}
	return
}

func (self *boltStore) WriteBlock(idx uint64, data []byte) error {
	if err := storage.CheckWrite(self.blocks, idx, data); err != nil {
		return err
	}
	key := storage.BlockKey(idx)
	if util.IsZero(data) {
		return self.db.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket(blocksBucket).Delete(key)
		})
	}
	v, err := self.codec.EncodeBytes(data, key)
	if err != nil {
		return errors.Wrapf(err, "encode block %d", idx)
	}
	// Encoding may be the identity; bbolt wants to own the value.
	v = append([]byte(nil), v...)
	return self.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(blocksBucket).Put(key, v)
	})
}

func (self *boltStore) Flush() error {
	return errors.Wrap(self.db.Sync(), "bbolt sync")
}

func (self *boltStore) Close() error {
	mlog.Printf2("storage/bolt/bolt", "boltStore.Close")
	return self.db.Close()
}

// StoredBlocks returns how many blocks have a stored value.
func StoredBlocks(bs storage.BlockStore) (n int) {
	self := bs.(*boltStore)
	self.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(blocksBucket).Stats().KeyN
		return nil
	})
	return
}
