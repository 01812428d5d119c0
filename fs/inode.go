/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 14 10:40:19 2018 mstenber
 * Last modified: Tue Feb 20 10:31:02 2018 mstenber
 * Edit time:     29 min
 *
 */

package fs

import (
	"log"

	"github.com/fingon/go-extentfs/bitmap"
	"github.com/fingon/go-extentfs/layout"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/pkg/errors"
)

func (self *Fs) inodeLocation(ino uint32) (block uint64, ofs int) {
	if ino >= self.sb.TotalInodes {
		log.Panicf("inode %d outside table of %d", ino, self.sb.TotalInodes)
	}
	block = uint64(self.sb.InodeTableStart) + uint64(ino/layout.InodesPerBlock)
	ofs = int(ino%layout.InodesPerBlock) * layout.InodeSize
	return
}

func (self *Fs) getInode(ino uint32) (*layout.Inode, error) {
	block, ofs := self.inodeLocation(ino)
	b, err := self.store.ReadBlock(block)
	if err != nil {
		return nil, err
	}
	in := layout.DecodeInode(b[ofs:])
	return &in, nil
}

// putInode stores the record at the slot given by its Self field.
func (self *Fs) putInode(in *layout.Inode) error {
	block, ofs := self.inodeLocation(in.Self)
	b, err := self.store.ReadBlock(block)
	if err != nil {
		return err
	}
	in.Encode(b[ofs:])
	return self.store.WriteBlock(block, b)
}

// allocInode reserves an inode slot and stores a fresh record in it.
func (self *Fs) allocInode(mode uint32) (*layout.Inode, error) {
	idx, err := self.inodes.FindFreeRun(1)
	if errors.Cause(err) == bitmap.ErrFull {
		return nil, errors.Wrap(ErrNoSpace, "no free inodes")
	}
	if err != nil {
		return nil, err
	}
	if err = self.inodes.SetBits(idx, 1); err != nil {
		return nil, err
	}
	self.sb.FreeInodes--
	if err = self.writeSuperblock(); err != nil {
		return nil, err
	}
	in := layout.NewInode(uint32(idx), mode, self.Now())
	mlog.Printf2("fs/inode", "allocInode %o: #%d", mode, idx)
	if err = self.putInode(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

// freeInode releases the slot. The body must have been released
// already.
func (self *Fs) freeInode(in *layout.Inode) error {
	if in.ExtentBlock != layout.ExtentNone {
		log.Panicf("freeInode #%d with extents", in.Self)
	}
	mlog.Printf2("fs/inode", "freeInode #%d", in.Self)
	cleared := layout.Inode{Self: in.Self, ExtentBlock: layout.ExtentNone}
	if err := self.putInode(&cleared); err != nil {
		return err
	}
	if err := self.inodes.ClearBits(uint64(in.Self), 1); err != nil {
		return err
	}
	self.sb.FreeInodes++
	return self.writeSuperblock()
}
