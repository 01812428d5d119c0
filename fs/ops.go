/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Feb 15 09:12:02 2018 mstenber
 * Last modified: Tue Feb 20 13:31:55 2018 mstenber
 * Edit time:     96 min
 *
 */

package fs

import (
	"time"

	"github.com/fingon/go-extentfs/layout"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/pkg/errors"
)

// This file has the operations the OS glue calls; all take absolute
// paths.

type Stat struct {
	Ino   uint32
	Mode  uint32
	Size  uint64
	Links uint32
	Mtime time.Time

	// Blocks is the number of BlockSize blocks in use, the extent
	// array block included.
	Blocks uint64
}

func (self *Stat) IsDir() bool {
	return self.Mode&layout.ModeTypeMask == layout.ModeDir
}

type DirEntry struct {
	Name string
	Ino  uint32
}

type StatFs struct {
	BlockSize   uint64
	TotalBlocks uint64
	FreeBlocks  uint64
	TotalInodes uint64
	FreeInodes  uint64
	NameMax     uint64
}

func statOf(in *layout.Inode) Stat {
	st := Stat{Ino: in.Self, Mode: in.Mode, Size: in.Size, Links: in.Links,
		Mtime: in.Mtime(), Blocks: in.Blocks()}
	if in.ExtentBlock != layout.ExtentNone {
		st.Blocks++
	}
	return st
}

func (self *Fs) Stat(path string) (Stat, error) {
	in, err := self.resolve(path)
	if err != nil {
		return Stat{}, err
	}
	return statOf(in), nil
}

// List returns the entries of a directory in storage order.
func (self *Fs) List(path string) ([]DirEntry, error) {
	dir, err := self.resolveDir(path)
	if err != nil {
		return nil, err
	}
	ret := make([]DirEntry, 0, dir.Size/layout.DirentSize)
	err = self.eachDirent(dir, func(i uint64, d layout.Dirent) bool {
		ret = append(ret, DirEntry{Name: d.Name, Ino: d.Ino})
		return true
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Create makes a new file or directory name within parent; only the
// permission bits of mode are used.
func (self *Fs) Create(parent, name string, mode uint32, isDir bool) (uint32, error) {
	mlog.Printf2("fs/ops", "Create %q %q %o dir:%v", parent, name, mode, isDir)
	dir, err := self.resolveDir(parent)
	if err != nil {
		return 0, err
	}
	if err = validateName(name); err != nil {
		return 0, err
	}
	_, _, err = self.lookup(dir, name)
	if err == nil {
		return 0, errors.Wrapf(ErrAlreadyExists, "%q in %q", name, parent)
	}
	if errors.Cause(err) != ErrNotFound {
		return 0, err
	}
	mode &= layout.ModePermMask
	if isDir {
		mode |= layout.ModeDir
	} else {
		mode |= layout.ModeFile
	}
	child, err := self.allocInode(mode)
	if err != nil {
		return 0, err
	}
	err = self.appendEntry(dir, layout.Dirent{Ino: child.Self, Name: name}, isDir)
	if err != nil {
		if ferr := self.freeInode(child); ferr != nil {
			mlog.Printf2("fs/ops", " freeInode failed too: %v", ferr)
		}
		return 0, err
	}
	if err = self.putInode(dir); err != nil {
		return 0, err
	}
	return child.Self, nil
}

// Remove deletes name from parent and frees it. Directories have to
// be empty.
func (self *Fs) Remove(parent, name string, isDir bool) error {
	mlog.Printf2("fs/ops", "Remove %q %q dir:%v", parent, name, isDir)
	dir, err := self.resolveDir(parent)
	if err != nil {
		return err
	}
	if err = validateName(name); err != nil {
		return err
	}
	ino, _, err := self.lookup(dir, name)
	if err != nil {
		return errors.Wrapf(err, "in %q", parent)
	}
	child, err := self.getInode(ino)
	if err != nil {
		return err
	}
	switch {
	case isDir && !child.IsDir():
		return errors.Wrapf(ErrNotADirectory, "%q in %q", name, parent)
	case !isDir && child.IsDir():
		return errors.Wrapf(ErrNotAFile, "%q in %q", name, parent)
	case child.IsDir() && child.Size > 0:
		return errors.Wrapf(ErrDirectoryNotEmpty, "%q in %q", name, parent)
	}
	if _, err = self.removeEntry(dir, name); err != nil {
		return err
	}
	if child.IsDir() {
		dir.Links--
	}
	if err = self.putInode(dir); err != nil {
		return err
	}
	if err = self.releaseTrailingBlocks(child, child.Blocks()); err != nil {
		return err
	}
	return self.freeInode(child)
}

func (self *Fs) SetMtime(path string, t time.Time) error {
	in, err := self.resolve(path)
	if err != nil {
		return err
	}
	in.SetMtime(t)
	return self.putInode(in)
}

// SetSize truncates or extends a file; extension reads as zeroes.
func (self *Fs) SetSize(path string, size uint64) error {
	in, err := self.resolveFile(path)
	if err != nil {
		return err
	}
	changed, err := self.setSize(in, size)
	if err != nil || !changed {
		return err
	}
	in.SetMtime(self.Now())
	return self.putInode(in)
}

// Read returns exactly length bytes at off, zero-filled past the
// end of file; empty if off is not within the file.
func (self *Fs) Read(path string, off uint64, length int) ([]byte, error) {
	if length < 0 {
		return nil, errors.Wrapf(ErrInvalidPath, "read of %d bytes", length)
	}
	in, err := self.resolveFile(path)
	if err != nil {
		return nil, err
	}
	return self.readInode(in, off, length)
}

// Write stores data at off, growing the file as needed; a gap
// between the old end and off reads as zeroes.
func (self *Fs) Write(path string, off uint64, data []byte) (int, error) {
	in, err := self.resolveFile(path)
	if err != nil {
		return 0, err
	}
	n, err := self.writeInode(in, off, data)
	if err != nil || n == 0 {
		return 0, err
	}
	if err = self.putInode(in); err != nil {
		return 0, err
	}
	return n, nil
}

func (self *Fs) StatFs() StatFs {
	return StatFs{
		BlockSize:   storage.BlockSize,
		TotalBlocks: uint64(self.sb.TotalBlocks),
		FreeBlocks:  uint64(self.sb.FreeBlocks),
		TotalInodes: uint64(self.sb.TotalInodes),
		FreeInodes:  uint64(self.sb.FreeInodes),
		NameMax:     layout.NameMax,
	}
}
