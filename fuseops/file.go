/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 21 11:40:05 2018 mstenber
 * Last modified: Thu Feb 22 13:58:31 2018 mstenber
 * Edit time:     31 min
 *
 */

package fuseops

import (
	"fmt"
	"time"

	"github.com/hanwen/go-fuse/fuse"
	"github.com/hanwen/go-fuse/fuse/nodefs"
)

// extentFile is an open file. There is no per-handle state beyond
// the path; every call goes back to the engine.
type extentFile struct {
	nodefs.File

	efs  *ExtentFs
	path string
}

var _ nodefs.File = &extentFile{}

func newFile(efs *ExtentFs, path string) *extentFile {
	return &extentFile{File: nodefs.NewDefaultFile(), efs: efs, path: path}
}

func (self *extentFile) String() string {
	return fmt.Sprintf("extentFile{%s}", self.path)
}

func (self *extentFile) InnerFile() nodefs.File {
	return nil
}

// Read returns at most len(dest) bytes; unlike fs.Read, the result
// stops at end of file.
func (self *extentFile) Read(dest []byte, off int64) (fuse.ReadResult, fuse.Status) {
	defer self.efs.lock.RLocked()()
	st, err := self.efs.fs.Stat(self.path)
	if err != nil {
		return nil, toStatus(err)
	}
	if off < 0 || uint64(off) >= st.Size {
		return fuse.ReadResultData(nil), fuse.OK
	}
	length := uint64(len(dest))
	if left := st.Size - uint64(off); left < length {
		length = left
	}
	data, err := self.efs.fs.Read(self.path, uint64(off), int(length))
	if err != nil {
		return nil, toStatus(err)
	}
	return fuse.ReadResultData(data), fuse.OK
}

func (self *extentFile) Write(data []byte, off int64) (uint32, fuse.Status) {
	if off < 0 {
		return 0, fuse.EINVAL
	}
	defer self.efs.lock.Locked()()
	n, err := self.efs.fs.Write(self.path, uint64(off), data)
	return uint32(n), toStatus(err)
}

func (self *extentFile) Truncate(size uint64) fuse.Status {
	defer self.efs.lock.Locked()()
	return toStatus(self.efs.fs.SetSize(self.path, size))
}

func (self *extentFile) GetAttr(out *fuse.Attr) fuse.Status {
	defer self.efs.lock.RLocked()()
	st, err := self.efs.fs.Stat(self.path)
	if err != nil {
		return toStatus(err)
	}
	fillAttr(&st, out)
	return fuse.OK
}

func (self *extentFile) Utimens(atime *time.Time, mtime *time.Time) fuse.Status {
	return self.efs.utimens(self.path, mtime)
}

func (self *extentFile) Flush() fuse.Status {
	return fuse.OK
}

func (self *extentFile) Fsync(flags int) fuse.Status {
	defer self.efs.lock.Locked()()
	return toStatus(self.efs.fs.Flush())
}
