/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Feb 13 14:02:10 2018 mstenber
 * Last modified: Mon Feb 19 12:41:35 2018 mstenber
 * Edit time:     93 min
 *
 */

// layout package describes the persisted image: superblock, inode
// records, extents and directory entries, and how a fresh image is
// partitioned into regions.
//
// Image:
//
//	block 0                 superblock
//	BlockBitmapStart        block bitmap (1 bit/data block)
//	InodeBitmapStart        inode bitmap (1 bit/inode)
//	InodeTableStart         inode records, InodesPerBlock per block
//	DataRegionStart         data blocks; extents are relative to this
//
// All integers are little-endian; bitmaps are MSB-first within each
// byte.
package layout

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/fingon/go-extentfs/storage"
	"github.com/pkg/errors"
)

const (
	BlockSize = storage.BlockSize

	Magic uint64 = 0xC5C369A1C5C369A1

	SuperblockSize = 48

	InodeSize      = 64
	InodesPerBlock = BlockSize / InodeSize

	ExtentSize      = 8
	ExtentsPerBlock = BlockSize / ExtentSize

	DirentSize      = 256
	DirentsPerBlock = BlockSize / DirentSize
	NameMax         = DirentSize - 4

	PathMax = 4096

	// MaxFileSize is what one full extent array of maximal runs can
	// map.
	MaxFileSize uint64 = ExtentsPerBlock * math.MaxUint32 * BlockSize

	BitsPerBlock = BlockSize * 8

	// ExtentNone is the ExtentBlock of an inode without extents.
	ExtentNone uint32 = 0xFFFFFFFF

	RootIno uint32 = 0
)

// Mode bits, as in stat(2).
const (
	ModeTypeMask uint32 = 0170000
	ModeDir      uint32 = 0040000
	ModeFile     uint32 = 0100000
	ModePermMask uint32 = 07777
)

var ErrBadMagic = errors.New("bad superblock magic")
var ErrBadGeometry = errors.New("bad geometry")

var le = binary.LittleEndian

type Superblock struct {
	Magic            uint64
	Size             uint64
	TotalBlocks      uint32
	TotalInodes      uint32
	FreeBlocks       uint32
	FreeInodes       uint32
	BlockBitmapStart uint32
	InodeBitmapStart uint32
	InodeTableStart  uint32
	DataRegionStart  uint32
}

func (self *Superblock) Encode(b []byte) {
	le.PutUint64(b[0:], self.Magic)
	le.PutUint64(b[8:], self.Size)
	le.PutUint32(b[16:], self.TotalBlocks)
	le.PutUint32(b[20:], self.TotalInodes)
	le.PutUint32(b[24:], self.FreeBlocks)
	le.PutUint32(b[28:], self.FreeInodes)
	le.PutUint32(b[32:], self.BlockBitmapStart)
	le.PutUint32(b[36:], self.InodeBitmapStart)
	le.PutUint32(b[40:], self.InodeTableStart)
	le.PutUint32(b[44:], self.DataRegionStart)
}

func DecodeSuperblock(b []byte) (sb Superblock, err error) {
	sb.Magic = le.Uint64(b[0:])
	if sb.Magic != Magic {
		err = errors.Wrapf(ErrBadMagic, "%x", sb.Magic)
		return
	}
	sb.Size = le.Uint64(b[8:])
	sb.TotalBlocks = le.Uint32(b[16:])
	sb.TotalInodes = le.Uint32(b[20:])
	sb.FreeBlocks = le.Uint32(b[24:])
	sb.FreeInodes = le.Uint32(b[28:])
	sb.BlockBitmapStart = le.Uint32(b[32:])
	sb.InodeBitmapStart = le.Uint32(b[36:])
	sb.InodeTableStart = le.Uint32(b[40:])
	sb.DataRegionStart = le.Uint32(b[44:])
	err = sb.Validate()
	return
}

// DataBlocks is the size of the data region (and of the block bitmap
// universe).
func (self *Superblock) DataBlocks() uint32 {
	return self.TotalBlocks - self.DataRegionStart
}

// MetadataBlocks is the fixed part of the image in front of the data
// region.
func (self *Superblock) MetadataBlocks() uint32 {
	return self.DataRegionStart
}

// Validate checks that the regions are in order and fit.
func (self *Superblock) Validate() error {
	ibm := (uint64(self.TotalInodes) + BitsPerBlock - 1) / BitsPerBlock
	itable := (uint64(self.TotalInodes) + InodesPerBlock - 1) / InodesPerBlock
	data := uint64(self.TotalBlocks) - uint64(self.DataRegionStart)
	switch {
	case self.TotalInodes == 0:
		return errors.Wrap(ErrBadGeometry, "no inodes")
	case self.BlockBitmapStart != 1:
		return errors.Wrapf(ErrBadGeometry, "block bitmap at %d", self.BlockBitmapStart)
	case self.InodeBitmapStart <= self.BlockBitmapStart:
		return errors.Wrapf(ErrBadGeometry, "inode bitmap at %d", self.InodeBitmapStart)
	case uint64(self.InodeTableStart) != uint64(self.InodeBitmapStart)+ibm:
		return errors.Wrapf(ErrBadGeometry, "inode table at %d", self.InodeTableStart)
	case uint64(self.DataRegionStart) != uint64(self.InodeTableStart)+itable:
		return errors.Wrapf(ErrBadGeometry, "data region at %d", self.DataRegionStart)
	case self.DataRegionStart >= self.TotalBlocks:
		return errors.Wrapf(ErrBadGeometry, "no data blocks")
	case uint64(self.InodeBitmapStart-self.BlockBitmapStart)*BitsPerBlock < data:
		return errors.Wrapf(ErrBadGeometry, "block bitmap too small for %d blocks", data)
	case self.FreeBlocks > uint32(data) || self.FreeInodes >= self.TotalInodes:
		return errors.Wrapf(ErrBadGeometry, "free counters %d/%d", self.FreeBlocks, self.FreeInodes)
	}
	return nil
}

// NewSuperblock partitions an image of totalBlocks blocks for the
// given number of inodes. The result describes an empty filesystem
// with only the root inode in use.
func NewSuperblock(totalBlocks, inodes uint64) (sb Superblock, err error) {
	if inodes == 0 || inodes > uint64(ExtentNone) {
		err = errors.Wrapf(ErrBadGeometry, "%d inodes", inodes)
		return
	}
	if totalBlocks >= uint64(ExtentNone) {
		err = errors.Wrapf(ErrBadGeometry, "%d blocks", totalBlocks)
		return
	}
	ibm := (inodes + BitsPerBlock - 1) / BitsPerBlock
	itable := (inodes + InodesPerBlock - 1) / InodesPerBlock
	if 1+ibm+itable >= totalBlocks {
		err = errors.Wrapf(ErrBadGeometry, "%d blocks too few for %d inodes", totalBlocks, inodes)
		return
	}
	remaining := totalBlocks - 1 - ibm - itable
	bbm := (remaining + BitsPerBlock - 1) / BitsPerBlock
	if bbm >= remaining {
		err = errors.Wrapf(ErrBadGeometry, "%d blocks leave no data region", totalBlocks)
		return
	}
	sb = Superblock{
		Magic:            Magic,
		Size:             totalBlocks * BlockSize,
		TotalBlocks:      uint32(totalBlocks),
		TotalInodes:      uint32(inodes),
		BlockBitmapStart: 1,
	}
	sb.InodeBitmapStart = uint32(1 + bbm)
	sb.InodeTableStart = sb.InodeBitmapStart + uint32(ibm)
	sb.DataRegionStart = sb.InodeTableStart + uint32(itable)
	sb.FreeBlocks = sb.DataBlocks()
	sb.FreeInodes = sb.TotalInodes - 1
	return
}

type Inode struct {
	Mode        uint32
	Links       uint32
	Size        uint64
	MtimeSec    int64
	MtimeNsec   uint32
	Self        uint32
	ExtentBlock uint32
	ExtentCount uint32
}

func NewInode(ino, mode uint32, now time.Time) Inode {
	in := Inode{Mode: mode, Links: 1, Self: ino, ExtentBlock: ExtentNone}
	if in.IsDir() {
		in.Links = 2
	}
	in.SetMtime(now)
	return in
}

func (self *Inode) IsDir() bool {
	return self.Mode&ModeTypeMask == ModeDir
}

func (self *Inode) Mtime() time.Time {
	return time.Unix(self.MtimeSec, int64(self.MtimeNsec))
}

func (self *Inode) SetMtime(t time.Time) {
	self.MtimeSec = t.Unix()
	self.MtimeNsec = uint32(t.Nanosecond())
}

// Blocks is the number of data blocks the file body spans.
func (self *Inode) Blocks() uint64 {
	n := self.Size / BlockSize
	if self.Size%BlockSize != 0 {
		n++
	}
	return n
}

func (self *Inode) Encode(b []byte) {
	le.PutUint32(b[0:], self.Mode)
	le.PutUint32(b[4:], self.Links)
	le.PutUint64(b[8:], self.Size)
	le.PutUint64(b[16:], uint64(self.MtimeSec))
	le.PutUint32(b[24:], self.MtimeNsec)
	le.PutUint32(b[28:], self.Self)
	le.PutUint32(b[32:], self.ExtentBlock)
	le.PutUint32(b[36:], self.ExtentCount)
	for i := 40; i < InodeSize; i++ {
		b[i] = 0
	}
}

func DecodeInode(b []byte) Inode {
	return Inode{
		Mode:        le.Uint32(b[0:]),
		Links:       le.Uint32(b[4:]),
		Size:        le.Uint64(b[8:]),
		MtimeSec:    int64(le.Uint64(b[16:])),
		MtimeNsec:   le.Uint32(b[24:]),
		Self:        le.Uint32(b[28:]),
		ExtentBlock: le.Uint32(b[32:]),
		ExtentCount: le.Uint32(b[36:]),
	}
}

// Extent is a run of data blocks; Start is relative to the data
// region.
type Extent struct {
	Start, Count uint32
}

func (self Extent) End() uint64 {
	return uint64(self.Start) + uint64(self.Count)
}

func (self Extent) Encode(b []byte) {
	le.PutUint32(b[0:], self.Start)
	le.PutUint32(b[4:], self.Count)
}

func DecodeExtent(b []byte) Extent {
	return Extent{Start: le.Uint32(b[0:]), Count: le.Uint32(b[4:])}
}

// EncodeExtents fills an extent array block.
func EncodeExtents(exts []Extent) []byte {
	b := make([]byte, BlockSize)
	for i, e := range exts {
		e.Encode(b[i*ExtentSize:])
	}
	return b
}

func DecodeExtents(b []byte, count uint32) []Extent {
	exts := make([]Extent, count)
	for i := range exts {
		exts[i] = DecodeExtent(b[i*ExtentSize:])
	}
	return exts
}

type Dirent struct {
	Ino  uint32
	Name string
}

// Encode writes the record; the name must already be at most
// NameMax bytes.
func (self Dirent) Encode(b []byte) {
	le.PutUint32(b[0:], self.Ino)
	n := copy(b[4:DirentSize], self.Name)
	for i := 4 + n; i < DirentSize; i++ {
		b[i] = 0
	}
}

func DecodeDirent(b []byte) Dirent {
	name := b[4:DirentSize]
	for i, c := range name {
		if c == 0 {
			name = name[:i]
			break
		}
	}
	return Dirent{Ino: le.Uint32(b[0:]), Name: string(name)}
}
