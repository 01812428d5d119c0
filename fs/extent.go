/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 14 11:12:40 2018 mstenber
 * Last modified: Tue Feb 20 11:02:57 2018 mstenber
 * Edit time:     118 min
 *
 */

package fs

import (
	"log"
	"math"

	"github.com/fingon/go-extentfs/bitmap"
	"github.com/fingon/go-extentfs/layout"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/pkg/errors"
)

// Every inode has at most one extent array block, holding up to
// layout.ExtentsPerBlock runs in logical order. The block is
// allocated with the first run and released with the last one.

func (self *Fs) loadExtents(in *layout.Inode) ([]layout.Extent, error) {
	if in.ExtentBlock == layout.ExtentNone {
		return nil, nil
	}
	b, err := self.store.ReadBlock(self.dataBlock(in.ExtentBlock))
	if err != nil {
		return nil, err
	}
	return layout.DecodeExtents(b, in.ExtentCount), nil
}

func (self *Fs) storeExtents(in *layout.Inode, exts []layout.Extent) error {
	in.ExtentCount = uint32(len(exts))
	return self.store.WriteBlock(self.dataBlock(in.ExtentBlock), layout.EncodeExtents(exts))
}

// allocRun reserves up to limit contiguous zeroed data blocks: the
// first run of full length if there is one, otherwise the first free
// run there is.
func (self *Fs) allocRun(limit uint64) (e layout.Extent, err error) {
	if limit > math.MaxUint32 {
		limit = math.MaxUint32
	}
	n := limit
	start, err := self.blocks.FindFreeRun(limit)
	if errors.Cause(err) == bitmap.ErrFull {
		start, n, err = self.blocks.FirstFreeRun(limit)
	}
	if errors.Cause(err) == bitmap.ErrFull {
		err = errors.Wrap(ErrNoSpace, "no free blocks")
		return
	}
	if err != nil {
		return
	}
	if err = self.blocks.SetBits(start, n); err != nil {
		return
	}
	e = layout.Extent{Start: uint32(start), Count: uint32(n)}
	self.sb.FreeBlocks -= e.Count
	if err = self.writeSuperblock(); err != nil {
		return
	}
	for i := uint32(0); i < e.Count; i++ {
		if err = self.store.WriteBlock(self.dataBlock(e.Start+i), zeroBlock); err != nil {
			return
		}
	}
	mlog.Printf2("fs/extent", "allocRun %d: %d+%d", limit, e.Start, e.Count)
	return
}

func (self *Fs) freeRun(e layout.Extent) error {
	mlog.Printf2("fs/extent", "freeRun %d+%d", e.Start, e.Count)
	if err := self.blocks.ClearBits(uint64(e.Start), uint64(e.Count)); err != nil {
		return err
	}
	self.sb.FreeBlocks += e.Count
	return self.writeSuperblock()
}

// appendBlocks grows the body of in by needed blocks. On failure
// every block allocated by this call is released again, so in (and
// the counters) are as they were. The caller stores in.
func (self *Fs) appendBlocks(in *layout.Inode, needed uint64) (err error) {
	if needed == 0 {
		return nil
	}
	mlog.Printf2("fs/extent", "appendBlocks #%d %d", in.Self, needed)
	arrayAllocated := false
	if in.ExtentBlock == layout.ExtentNone {
		e, err := self.allocRun(1)
		if err != nil {
			return err
		}
		in.ExtentBlock = e.Start
		in.ExtentCount = 0
		arrayAllocated = true
	}
	var got []layout.Extent
	defer func() {
		if err == nil {
			return
		}
		mlog.Printf2("fs/extent", " rolling back %d runs: %v", len(got), err)
		for _, e := range got {
			if ferr := self.freeRun(e); ferr != nil {
				mlog.Printf2("fs/extent", " freeRun %d+%d failed too: %v", e.Start, e.Count, ferr)
			}
		}
		if arrayAllocated {
			if ferr := self.freeRun(layout.Extent{Start: in.ExtentBlock, Count: 1}); ferr != nil {
				mlog.Printf2("fs/extent", " freeRun of extent array %d failed too: %v", in.ExtentBlock, ferr)
			}
			in.ExtentBlock = layout.ExtentNone
			in.ExtentCount = 0
		}
	}()
	exts, err := self.loadExtents(in)
	if err != nil {
		return err
	}
	for needed > 0 {
		var e layout.Extent
		e, err = self.allocRun(needed)
		if err != nil {
			return err
		}
		got = append(got, e)
		needed -= uint64(e.Count)
		n := len(exts)
		if n > 0 && exts[n-1].End() == uint64(e.Start) &&
			uint64(exts[n-1].Count)+uint64(e.Count) <= math.MaxUint32 {
			exts[n-1].Count += e.Count
			continue
		}
		if n == layout.ExtentsPerBlock {
			return errors.Wrapf(ErrNoSpace, "extent array of #%d full", in.Self)
		}
		exts = append(exts, e)
	}
	return self.storeExtents(in, exts)
}

// releaseTrailingBlocks frees the last count blocks of the body of
// in, last allocated first. The caller stores in.
func (self *Fs) releaseTrailingBlocks(in *layout.Inode, count uint64) error {
	if count == 0 {
		return nil
	}
	mlog.Printf2("fs/extent", "releaseTrailingBlocks #%d %d", in.Self, count)
	exts, err := self.loadExtents(in)
	if err != nil {
		return err
	}
	for count > 0 {
		n := len(exts)
		if n == 0 {
			log.Panicf("releasing %d blocks past extents of #%d", count, in.Self)
		}
		last := &exts[n-1]
		take := uint32(count)
		if uint64(last.Count) < count {
			take = last.Count
		}
		err = self.freeRun(layout.Extent{Start: last.Start + last.Count - take, Count: take})
		if err != nil {
			return err
		}
		last.Count -= take
		count -= uint64(take)
		if last.Count == 0 {
			exts = exts[:n-1]
		}
	}
	if len(exts) == 0 {
		if err = self.freeRun(layout.Extent{Start: in.ExtentBlock, Count: 1}); err != nil {
			return err
		}
		in.ExtentBlock = layout.ExtentNone
		in.ExtentCount = 0
		return nil
	}
	return self.storeExtents(in, exts)
}

// locate maps logical block of a body to a store block index.
func (self *Fs) locate(exts []layout.Extent, logical uint64) (uint64, bool) {
	for _, e := range exts {
		if logical < uint64(e.Count) {
			return self.dataBlock(e.Start) + logical, true
		}
		logical -= uint64(e.Count)
	}
	return 0, false
}

func extentBlocks(exts []layout.Extent) (n uint64) {
	for _, e := range exts {
		n += uint64(e.Count)
	}
	return
}
