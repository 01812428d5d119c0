/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Feb 13 16:31:09 2018 mstenber
 * Last modified: Mon Feb 19 13:22:41 2018 mstenber
 * Edit time:     77 min
 *
 */

// bitmap package is the allocator of the image: a bit vector stored
// in consecutive blocks of a BlockStore, bit set = in use. Bit i is
// in byte i/8 with mask 0x80 >> (i%8).
//
// Bitmap does no accounting of its own; the filesystem keeps the
// free counters in the superblock in step with the bit flips.
package bitmap

import (
	"log"
	"math/bits"

	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/pkg/errors"
)

const bitsPerBlock = storage.BlockSize * 8

var ErrFull = errors.New("no free run of requested length")

type Bitmap struct {
	store storage.BlockStore
	start uint64
	bits  uint64
}

// New describes a bitmap of nbits bits starting at block start.
func New(store storage.BlockStore, start, nbits uint64) *Bitmap {
	return &Bitmap{store: store, start: start, bits: nbits}
}

func (self *Bitmap) Len() uint64 {
	return self.bits
}

// Blocks is the number of blocks the bitmap occupies.
func (self *Bitmap) Blocks() uint64 {
	return (self.bits + bitsPerBlock - 1) / bitsPerBlock
}

func mask(i uint64) byte {
	return 0x80 >> (i % 8)
}

// Scan calls cb for bits from, from+1, .. until cb returns false or
// the bitmap ends.
func (self *Bitmap) Scan(from uint64, cb func(i uint64, set bool) bool) error {
	for bi := from / bitsPerBlock; bi < self.Blocks(); bi++ {
		b, err := self.store.ReadBlock(self.start + bi)
		if err != nil {
			return err
		}
		i := from
		if base := bi * bitsPerBlock; i < base {
			i = base
		}
		end := (bi + 1) * bitsPerBlock
		if end > self.bits {
			end = self.bits
		}
		for ; i < end; i++ {
			if !cb(i, b[(i/8)%storage.BlockSize]&mask(i) != 0) {
				return nil
			}
		}
	}
	return nil
}

// FindFreeRun returns the start of the first run of count clear
// bits (first-fit).
func (self *Bitmap) FindFreeRun(count uint64) (uint64, error) {
	if count == 0 {
		log.Panicf("FindFreeRun of zero bits")
	}
	var runStart, runLen uint64
	err := self.Scan(0, func(i uint64, set bool) bool {
		if set {
			runLen = 0
			return true
		}
		if runLen == 0 {
			runStart = i
		}
		runLen++
		return runLen < count
	})
	if err != nil {
		return 0, err
	}
	if runLen < count {
		return 0, errors.Wrapf(ErrFull, "%d bits", count)
	}
	mlog.Printf2("bitmap/bitmap", "FindFreeRun %d: %d", count, runStart)
	return runStart, nil
}

// FirstFreeRun returns the first clear bit and the length of the
// clear run starting there, capped at limit.
func (self *Bitmap) FirstFreeRun(limit uint64) (start, length uint64, err error) {
	if limit == 0 {
		log.Panicf("FirstFreeRun of zero bits")
	}
	err = self.Scan(0, func(i uint64, set bool) bool {
		if set {
			return length == 0
		}
		if length == 0 {
			start = i
		}
		length++
		return length < limit
	})
	if err == nil && length == 0 {
		err = errors.Wrap(ErrFull, "no clear bits")
	}
	return
}

func (self *Bitmap) checkRange(start, count uint64) {
	if start+count > self.bits || start+count < start {
		log.Panicf("bitmap range %d+%d outside %d bits", start, count, self.bits)
	}
}

func (self *Bitmap) setRange(start, count uint64, value bool) error {
	self.checkRange(start, count)
	for count > 0 {
		bi := start / bitsPerBlock
		b, err := self.store.ReadBlock(self.start + bi)
		if err != nil {
			return err
		}
		end := (bi + 1) * bitsPerBlock
		for ; count > 0 && start < end; start, count = start+1, count-1 {
			ofs := (start / 8) % storage.BlockSize
			if value {
				b[ofs] |= mask(start)
			} else {
				b[ofs] &^= mask(start)
			}
		}
		if err = self.store.WriteBlock(self.start+bi, b); err != nil {
			return err
		}
	}
	return nil
}

// SetBits marks [start, start+count) in use.
func (self *Bitmap) SetBits(start, count uint64) error {
	mlog.Printf2("bitmap/bitmap", "SetBits %d+%d", start, count)
	return self.setRange(start, count, true)
}

// ClearBits marks [start, start+count) free.
func (self *Bitmap) ClearBits(start, count uint64) error {
	mlog.Printf2("bitmap/bitmap", "ClearBits %d+%d", start, count)
	return self.setRange(start, count, false)
}

func (self *Bitmap) Test(i uint64) (bool, error) {
	self.checkRange(i, 1)
	b, err := self.store.ReadBlock(self.start + i/bitsPerBlock)
	if err != nil {
		return false, err
	}
	return b[(i/8)%storage.BlockSize]&mask(i) != 0, nil
}

// CountSet returns the number of set bits within the bitmap length.
func (self *Bitmap) CountSet() (n uint64, err error) {
	left := self.bits
	for bi := uint64(0); bi < self.Blocks(); bi++ {
		var b []byte
		b, err = self.store.ReadBlock(self.start + bi)
		if err != nil {
			return
		}
		for _, c := range b {
			if left == 0 {
				return
			}
			if left < 8 {
				c &= ^byte(0xff >> left)
				left = 0
			} else {
				left -= 8
			}
			n += uint64(bits.OnesCount8(c))
		}
	}
	return
}
