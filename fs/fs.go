/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 14 09:10:51 2018 mstenber
 * Last modified: Tue Feb 20 10:15:36 2018 mstenber
 * Edit time:     102 min
 *
 */

// fs package is the filesystem engine: it keeps a superblock, two
// allocation bitmaps, a flat inode table and extent-mapped file and
// directory bodies within a storage.BlockStore.
//
// Fs does no locking. Mutating calls must be serialized by the
// caller; read-only calls (Stat, List, Read, Resolve, StatFs) may run
// concurrently with each other.
package fs

import (
	"time"

	"github.com/fingon/go-extentfs/bitmap"
	"github.com/fingon/go-extentfs/layout"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/pkg/errors"
)

type Fs struct {
	store  storage.BlockStore
	sb     layout.Superblock
	inodes *bitmap.Bitmap
	blocks *bitmap.Bitmap

	// Now provides mtimes; replaceable for tests.
	Now func() time.Time
}

var zeroBlock = make([]byte, storage.BlockSize)

func newFs(store storage.BlockStore, sb layout.Superblock) *Fs {
	self := &Fs{store: store, sb: sb, Now: time.Now}
	self.inodes = bitmap.New(store, uint64(sb.InodeBitmapStart), uint64(sb.TotalInodes))
	self.blocks = bitmap.New(store, uint64(sb.BlockBitmapStart), uint64(sb.DataBlocks()))
	return self
}

// Open mounts a formatted image.
func Open(store storage.BlockStore) (*Fs, error) {
	b, err := store.ReadBlock(0)
	if err != nil {
		return nil, err
	}
	sb, err := layout.DecodeSuperblock(b)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	if uint64(sb.TotalBlocks) != store.BlockCount() {
		return nil, errors.Wrapf(ErrCorrupt, "superblock says %d blocks, image has %d",
			sb.TotalBlocks, store.BlockCount())
	}
	mlog.Printf2("fs/fs", "Open: %d blocks (%d free), %d inodes (%d free)",
		sb.TotalBlocks, sb.FreeBlocks, sb.TotalInodes, sb.FreeInodes)
	return newFs(store, sb), nil
}

func (self *Fs) writeSuperblock() error {
	b := make([]byte, storage.BlockSize)
	self.sb.Encode(b)
	return self.store.WriteBlock(0, b)
}

// Superblock returns a copy of the in-memory superblock.
func (self *Fs) Superblock() layout.Superblock {
	return self.sb
}

func (self *Fs) Flush() error {
	mlog.Printf2("fs/fs", "Flush")
	if err := self.writeSuperblock(); err != nil {
		return err
	}
	return self.store.Flush()
}

// Close flushes and closes the underlying store too.
func (self *Fs) Close() error {
	mlog.Printf2("fs/fs", "Close")
	if err := self.Flush(); err != nil {
		self.store.Close()
		return err
	}
	return self.store.Close()
}

// dataBlock maps data-region relative block to store block index.
func (self *Fs) dataBlock(rel uint32) uint64 {
	return uint64(self.sb.DataRegionStart) + uint64(rel)
}
