/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 14 15:02:18 2018 mstenber
 * Last modified: Tue Feb 20 12:10:39 2018 mstenber
 * Edit time:     71 min
 *
 */

package fs

import (
	"strings"

	"github.com/fingon/go-extentfs/layout"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/pkg/errors"
)

// Directory bodies are packed layout.Dirent records; the count is
// dir.Size / layout.DirentSize and there is no terminator. Records
// never straddle blocks.

func validateName(name string) error {
	switch {
	case name == "" || name == "." || name == "..":
		return errors.Wrapf(ErrInvalidPath, "name %q", name)
	case strings.ContainsAny(name, "/\x00"):
		return errors.Wrapf(ErrInvalidPath, "name %q", name)
	case len(name) > layout.NameMax:
		return errors.Wrapf(ErrNameTooLong, "%d bytes", len(name))
	}
	return nil
}

// eachDirent calls cb with entries in storage order until it returns
// false.
func (self *Fs) eachDirent(dir *layout.Inode, cb func(i uint64, d layout.Dirent) bool) error {
	count := dir.Size / layout.DirentSize
	if count == 0 {
		return nil
	}
	exts, err := self.loadExtents(dir)
	if err != nil {
		return err
	}
	for i := uint64(0); i < count; {
		phys, ok := self.locate(exts, i/layout.DirentsPerBlock)
		if !ok {
			return errors.Wrapf(ErrCorrupt, "directory #%d entry %d not mapped", dir.Self, i)
		}
		b, err := self.store.ReadBlock(phys)
		if err != nil {
			return err
		}
		for j := 0; j < layout.DirentsPerBlock && i < count; j, i = j+1, i+1 {
			if !cb(i, layout.DecodeDirent(b[j*layout.DirentSize:])) {
				return nil
			}
		}
	}
	return nil
}

// lookup finds name in dir; returns its inode and entry index.
func (self *Fs) lookup(dir *layout.Inode, name string) (ino uint32, idx uint64, err error) {
	found := false
	err = self.eachDirent(dir, func(i uint64, d layout.Dirent) bool {
		if d.Name != name {
			return true
		}
		ino, idx, found = d.Ino, i, true
		return false
	})
	if err == nil && !found {
		err = errors.Wrapf(ErrNotFound, "%q", name)
	}
	return
}

// appendEntry adds a record after the last one. The caller stores
// dir.
func (self *Fs) appendEntry(dir *layout.Inode, d layout.Dirent, isDir bool) error {
	if dir.Size%storage.BlockSize == 0 {
		if err := self.appendBlocks(dir, 1); err != nil {
			return err
		}
	}
	exts, err := self.loadExtents(dir)
	if err != nil {
		return err
	}
	b := make([]byte, layout.DirentSize)
	d.Encode(b)
	if err = self.writeBody(dir, exts, dir.Size, b); err != nil {
		return err
	}
	dir.Size += layout.DirentSize
	if isDir {
		dir.Links++
	}
	dir.SetMtime(self.Now())
	mlog.Printf2("fs/dir", "appendEntry #%d %q -> #%d", dir.Self, d.Name, d.Ino)
	return nil
}

// removeEntry drops name from dir, moving the last record into its
// place. The caller stores dir and adjusts links.
func (self *Fs) removeEntry(dir *layout.Inode, name string) (uint32, error) {
	ino, idx, err := self.lookup(dir, name)
	if err != nil {
		return 0, err
	}
	exts, err := self.loadExtents(dir)
	if err != nil {
		return 0, err
	}
	last := dir.Size/layout.DirentSize - 1
	if idx != last {
		b := make([]byte, layout.DirentSize)
		if err = self.readBody(dir, exts, last*layout.DirentSize, b); err != nil {
			return 0, err
		}
		if err = self.writeBody(dir, exts, idx*layout.DirentSize, b); err != nil {
			return 0, err
		}
	}
	dir.Size -= layout.DirentSize
	if dir.Size%storage.BlockSize == 0 {
		if err = self.releaseTrailingBlocks(dir, 1); err != nil {
			return 0, err
		}
	}
	dir.SetMtime(self.Now())
	mlog.Printf2("fs/dir", "removeEntry #%d %q (#%d)", dir.Self, name, ino)
	return ino, nil
}
