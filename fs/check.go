/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Feb 16 14:02:44 2018 mstenber
 * Last modified: Tue Feb 20 14:12:09 2018 mstenber
 * Edit time:     58 min
 *
 */

package fs

import (
	"fmt"

	"github.com/fingon/go-extentfs/layout"
	"github.com/fingon/go-extentfs/mlog"
)

type checker struct {
	fs       *Fs
	problems []string
	used     []bool   // data blocks referenced by some inode
	live     []bool   // inodes with bitmap bit set
	refs     []uint32 // directory entries pointing at inode
	subdirs  []uint32 // subdirectories per directory inode
}

func (self *checker) problemf(format string, args ...interface{}) {
	p := fmt.Sprintf(format, args...)
	mlog.Printf2("fs/check", "problem: %s", p)
	self.problems = append(self.problems, p)
}

func (self *checker) claim(ino uint32, e layout.Extent, what string) {
	if e.Count == 0 {
		self.problemf("#%d: empty %s extent at %d", ino, what, e.Start)
		return
	}
	if e.End() > uint64(len(self.used)) {
		self.problemf("#%d: %s extent %d+%d outside %d data blocks",
			ino, what, e.Start, e.Count, len(self.used))
		return
	}
	for i := uint64(e.Start); i < e.End(); i++ {
		if self.used[i] {
			self.problemf("#%d: %s block %d used twice", ino, what, i)
		}
		self.used[i] = true
	}
}

func (self *checker) checkInode(ino uint32) error {
	in, err := self.fs.getInode(ino)
	if err != nil {
		return err
	}
	if in.Links == 0 {
		self.problemf("#%d: allocated with no links", ino)
	}
	if in.Self != ino {
		self.problemf("#%d: self index %d", ino, in.Self)
	}
	if t := in.Mode & layout.ModeTypeMask; t != layout.ModeDir && t != layout.ModeFile {
		self.problemf("#%d: unknown mode %o", ino, in.Mode)
	}
	if in.ExtentBlock == layout.ExtentNone {
		if in.ExtentCount != 0 || in.Size != 0 {
			self.problemf("#%d: no extent block, %d extents, size %d", ino, in.ExtentCount, in.Size)
		}
		return nil
	}
	if in.ExtentCount == 0 || in.ExtentCount > layout.ExtentsPerBlock {
		self.problemf("#%d: %d extents", ino, in.ExtentCount)
		return nil
	}
	self.claim(ino, layout.Extent{Start: in.ExtentBlock, Count: 1}, "extent array")
	exts, err := self.fs.loadExtents(in)
	if err != nil {
		return err
	}
	for _, e := range exts {
		self.claim(ino, e, "data")
	}
	if n := extentBlocks(exts); n != in.Blocks() {
		self.problemf("#%d: size %d needs %d blocks, has %d", ino, in.Size, in.Blocks(), n)
		return nil
	}
	if !in.IsDir() {
		return nil
	}
	if in.Size%layout.DirentSize != 0 {
		self.problemf("#%d: directory size %d", ino, in.Size)
		return nil
	}
	names := make(map[string]bool)
	return self.fs.eachDirent(in, func(i uint64, d layout.Dirent) bool {
		if names[d.Name] {
			self.problemf("#%d: duplicate entry %q", ino, d.Name)
		}
		names[d.Name] = true
		if validateName(d.Name) != nil {
			self.problemf("#%d: bad entry name %q", ino, d.Name)
		}
		if d.Ino >= uint32(len(self.live)) || !self.live[d.Ino] {
			self.problemf("#%d: entry %q points to free inode %d", ino, d.Name, d.Ino)
			return true
		}
		self.refs[d.Ino]++
		child, err := self.fs.getInode(d.Ino)
		if err == nil && child.IsDir() {
			self.subdirs[ino]++
		}
		return true
	})
}

// Check verifies the accounting invariants of the image: free counters
// against bitmaps, extents within the data region and disjoint, sizes
// against allocated blocks, and every inode referenced exactly once.
// It returns the problems found; err is for failures reading the image.
func (self *Fs) Check() (problems []string, err error) {
	sb := self.sb
	c := &checker{fs: self,
		used:    make([]bool, sb.DataBlocks()),
		live:    make([]bool, sb.TotalInodes),
		refs:    make([]uint32, sb.TotalInodes),
		subdirs: make([]uint32, sb.TotalInodes)}
	var liveCount uint64
	err = self.inodes.Scan(0, func(i uint64, set bool) bool {
		c.live[i] = set
		if set {
			liveCount++
		}
		return true
	})
	if err != nil {
		return
	}
	if liveCount+uint64(sb.FreeInodes) != uint64(sb.TotalInodes) {
		c.problemf("%d inodes in use + %d free != %d", liveCount, sb.FreeInodes, sb.TotalInodes)
	}
	if !c.live[layout.RootIno] {
		c.problemf("root inode not allocated")
		return c.problems, nil
	}
	for ino := uint32(0); ino < sb.TotalInodes; ino++ {
		if !c.live[ino] {
			continue
		}
		if err = c.checkInode(ino); err != nil {
			return
		}
	}
	root, err := self.getInode(layout.RootIno)
	if err != nil {
		return
	}
	if !root.IsDir() {
		c.problemf("root is not a directory")
	}
	for ino := uint32(0); ino < sb.TotalInodes; ino++ {
		if !c.live[ino] {
			continue
		}
		want := uint32(1)
		if ino == layout.RootIno {
			want = 0
		}
		if c.refs[ino] != want {
			c.problemf("#%d: referenced %d times", ino, c.refs[ino])
		}
		in, err := self.getInode(ino)
		if err != nil {
			return c.problems, err
		}
		if in.IsDir() && in.Links != 2+c.subdirs[ino] {
			c.problemf("#%d: %d links, %d subdirectories", ino, in.Links, c.subdirs[ino])
		}
	}
	var usedCount uint64
	err = self.blocks.Scan(0, func(i uint64, set bool) bool {
		if set != c.used[i] {
			c.problemf("data block %d: bitmap %v, in use %v", i, set, c.used[i])
		}
		if set {
			usedCount++
		}
		return true
	})
	if err != nil {
		return
	}
	if usedCount+uint64(sb.FreeBlocks) != uint64(sb.DataBlocks()) {
		c.problemf("%d blocks in use + %d free != %d", usedCount, sb.FreeBlocks, sb.DataBlocks())
	}
	return c.problems, nil
}
