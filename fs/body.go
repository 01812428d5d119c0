/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 14 13:31:07 2018 mstenber
 * Last modified: Tue Feb 20 11:40:21 2018 mstenber
 * Edit time:     84 min
 *
 */

package fs

import (
	"github.com/fingon/go-extentfs/layout"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/pkg/errors"
)

// readBody copies len(buf) bytes at off from allocated blocks.
func (self *Fs) readBody(in *layout.Inode, exts []layout.Extent, off uint64, buf []byte) error {
	for len(buf) > 0 {
		phys, ok := self.locate(exts, off/storage.BlockSize)
		if !ok {
			return errors.Wrapf(ErrCorrupt, "#%d offset %d not mapped", in.Self, off)
		}
		b, err := self.store.ReadBlock(phys)
		if err != nil {
			return err
		}
		n := copy(buf, b[off%storage.BlockSize:])
		buf = buf[n:]
		off += uint64(n)
	}
	return nil
}

// writeBody copies buf to off in allocated blocks.
func (self *Fs) writeBody(in *layout.Inode, exts []layout.Extent, off uint64, buf []byte) error {
	for len(buf) > 0 {
		phys, ok := self.locate(exts, off/storage.BlockSize)
		if !ok {
			return errors.Wrapf(ErrCorrupt, "#%d offset %d not mapped", in.Self, off)
		}
		bofs := off % storage.BlockSize
		var n int
		if bofs == 0 && len(buf) >= storage.BlockSize {
			n = storage.BlockSize
			if err := self.store.WriteBlock(phys, buf[:n]); err != nil {
				return err
			}
		} else {
			b, err := self.store.ReadBlock(phys)
			if err != nil {
				return err
			}
			n = copy(b[bofs:], buf)
			if err = self.store.WriteBlock(phys, b); err != nil {
				return err
			}
		}
		buf = buf[n:]
		off += uint64(n)
	}
	return nil
}

// extend grows in to newSize bytes; the new bytes read as zero. Fails
// without changes if the free blocks do not suffice.
func (self *Fs) extend(in *layout.Inode, newSize uint64) error {
	if newSize > layout.MaxFileSize {
		return errors.Wrapf(ErrNoSpace, "#%d size %d over %d", in.Self, newSize, layout.MaxFileSize)
	}
	have := in.Blocks()
	want := (newSize + storage.BlockSize - 1) / storage.BlockSize
	if want > have {
		needed := want - have
		if in.ExtentBlock == layout.ExtentNone {
			needed++
		}
		if needed > uint64(self.sb.FreeBlocks) {
			return errors.Wrapf(ErrNoSpace, "#%d needs %d blocks, %d free",
				in.Self, needed, self.sb.FreeBlocks)
		}
		if err := self.appendBlocks(in, want-have); err != nil {
			return err
		}
	}
	// The tail of the last old block may hold bytes of an earlier,
	// longer incarnation; new blocks come zeroed.
	if tail := in.Size % storage.BlockSize; tail != 0 {
		end := have * storage.BlockSize
		if newSize < end {
			end = newSize
		}
		exts, err := self.loadExtents(in)
		if err != nil {
			return err
		}
		if err = self.writeBody(in, exts, in.Size, make([]byte, end-in.Size)); err != nil {
			return err
		}
	}
	mlog.Printf2("fs/body", "extend #%d %d -> %d", in.Self, in.Size, newSize)
	in.Size = newSize
	return nil
}

func (self *Fs) truncateShrink(in *layout.Inode, newSize uint64) error {
	want := (newSize + storage.BlockSize - 1) / storage.BlockSize
	if err := self.releaseTrailingBlocks(in, in.Blocks()-want); err != nil {
		return err
	}
	mlog.Printf2("fs/body", "truncateShrink #%d %d -> %d", in.Self, in.Size, newSize)
	in.Size = newSize
	return nil
}

// setSize changes size of in (but does not store it); returns
// whether anything changed.
func (self *Fs) setSize(in *layout.Inode, newSize uint64) (bool, error) {
	switch {
	case newSize > in.Size:
		return true, self.extend(in, newSize)
	case newSize < in.Size:
		return true, self.truncateShrink(in, newSize)
	}
	return false, nil
}

// readInode returns exactly length bytes at off; zeroes past EOF,
// nothing at all if off is at or past EOF.
func (self *Fs) readInode(in *layout.Inode, off uint64, length int) ([]byte, error) {
	if off >= in.Size {
		return []byte{}, nil
	}
	ret := make([]byte, length)
	n := uint64(length)
	if left := in.Size - off; left < n {
		n = left
	}
	exts, err := self.loadExtents(in)
	if err != nil {
		return nil, err
	}
	if err = self.readBody(in, exts, off, ret[:n]); err != nil {
		return nil, err
	}
	return ret, nil
}

// writeInode writes data at off, extending in as needed. The caller
// stores in.
func (self *Fs) writeInode(in *layout.Inode, off uint64, data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	end := off + uint64(len(data))
	if end < off {
		return 0, errors.Wrapf(ErrNoSpace, "write of %d at %d", len(data), off)
	}
	if end > in.Size {
		if err := self.extend(in, end); err != nil {
			return 0, err
		}
	}
	exts, err := self.loadExtents(in)
	if err != nil {
		return 0, err
	}
	if err = self.writeBody(in, exts, off, data); err != nil {
		return 0, err
	}
	in.SetMtime(self.Now())
	return len(data), nil
}
