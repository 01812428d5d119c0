/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 21 10:02:44 2018 mstenber
 * Last modified: Thu Feb 22 14:20:18 2018 mstenber
 * Edit time:     88 min
 *
 */

// fuseops package exposes fs.Fs to the kernel via go-fuse pathfs.
//
// The engine is single-threaded; go-fuse is not, so every call takes
// the filesystem lock. Reads share it, mutations hold it exclusively.
package fuseops

import (
	"path"
	"syscall"
	"time"

	"github.com/fingon/go-extentfs/fs"
	"github.com/fingon/go-extentfs/layout"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/util"
	"github.com/hanwen/go-fuse/fuse"
	"github.com/hanwen/go-fuse/fuse/nodefs"
	"github.com/hanwen/go-fuse/fuse/pathfs"
	"github.com/pkg/errors"
)

type ExtentFs struct {
	// Unimplemented calls (links, xattrs, rename, chmod) fall
	// through to the ENOSYS defaults.
	pathfs.FileSystem

	fs   *fs.Fs
	lock util.RWMutexLocked
}

var _ pathfs.FileSystem = &ExtentFs{}

func New(f *fs.Fs) *ExtentFs {
	return &ExtentFs{FileSystem: pathfs.NewDefaultFileSystem(), fs: f}
}

// Mount creates a fuse server for f at mountpoint; caller should
// Serve() it and Unmount() when done.
func Mount(f *fs.Fs, mountpoint string, opts *fuse.MountOptions) (*fuse.Server, error) {
	nfs := pathfs.NewPathNodeFs(New(f), nil)
	conn := nodefs.NewFileSystemConnector(nfs.Root(), nil)
	server, err := fuse.NewServer(conn.RawFS(), mountpoint, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "mount %q", mountpoint)
	}
	return server, nil
}

var errnoMap = map[error]syscall.Errno{
	fs.ErrNotFound:          syscall.ENOENT,
	fs.ErrNotADirectory:     syscall.ENOTDIR,
	fs.ErrNotAFile:          syscall.EISDIR,
	fs.ErrAlreadyExists:     syscall.EEXIST,
	fs.ErrDirectoryNotEmpty: syscall.ENOTEMPTY,
	fs.ErrNoSpace:           syscall.ENOSPC,
	fs.ErrNameTooLong:       syscall.ENAMETOOLONG,
	fs.ErrInvalidPath:       syscall.EINVAL,
}

func toStatus(err error) fuse.Status {
	if err == nil {
		return fuse.OK
	}
	if errno, ok := errnoMap[errors.Cause(err)]; ok {
		return fuse.Status(errno)
	}
	mlog.Printf2("fuseops/fuseops", "unmapped error %v", err)
	return fuse.EIO
}

// pathfs hands out names relative to the mount root ("" is the
// root itself).
func absPath(name string) string {
	return "/" + name
}

func splitName(name string) (parent, base string) {
	return path.Split(absPath(name))
}

func fillAttr(st *fs.Stat, out *fuse.Attr) {
	out.Ino = uint64(st.Ino) + 1
	out.Mode = st.Mode
	out.Size = st.Size
	out.Nlink = st.Links
	out.Blocks = st.Blocks * layout.BlockSize / 512
	out.Blksize = layout.BlockSize
	out.Owner = *fuse.CurrentOwner()
	mtime := st.Mtime
	out.SetTimes(&mtime, &mtime, &mtime)
}

func (self *ExtentFs) String() string {
	return "extentfs"
}

func (self *ExtentFs) GetAttr(name string, context *fuse.Context) (*fuse.Attr, fuse.Status) {
	defer self.lock.RLocked()()
	st, err := self.fs.Stat(absPath(name))
	if err != nil {
		return nil, toStatus(err)
	}
	out := &fuse.Attr{}
	fillAttr(&st, out)
	return out, fuse.OK
}

func (self *ExtentFs) OpenDir(name string, context *fuse.Context) ([]fuse.DirEntry, fuse.Status) {
	mlog.Printf2("fuseops/fuseops", "OpenDir %q", name)
	defer self.lock.RLocked()()
	p := absPath(name)
	entries, err := self.fs.List(p)
	if err != nil {
		return nil, toStatus(err)
	}
	ret := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		st, err := self.fs.Stat(path.Join(p, e.Name))
		if err != nil {
			return nil, toStatus(err)
		}
		ret = append(ret, fuse.DirEntry{Name: e.Name, Mode: st.Mode,
			Ino: uint64(e.Ino) + 1})
	}
	return ret, fuse.OK
}

func (self *ExtentFs) Mkdir(name string, mode uint32, context *fuse.Context) fuse.Status {
	defer self.lock.Locked()()
	parent, base := splitName(name)
	_, err := self.fs.Create(parent, base, mode, true)
	return toStatus(err)
}

func (self *ExtentFs) Rmdir(name string, context *fuse.Context) fuse.Status {
	defer self.lock.Locked()()
	parent, base := splitName(name)
	return toStatus(self.fs.Remove(parent, base, true))
}

func (self *ExtentFs) Unlink(name string, context *fuse.Context) fuse.Status {
	defer self.lock.Locked()()
	parent, base := splitName(name)
	return toStatus(self.fs.Remove(parent, base, false))
}

func (self *ExtentFs) Create(name string, flags uint32, mode uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	defer self.lock.Locked()()
	parent, base := splitName(name)
	_, err := self.fs.Create(parent, base, mode, false)
	if err != nil {
		return nil, toStatus(err)
	}
	return newFile(self, absPath(name)), fuse.OK
}

func (self *ExtentFs) Open(name string, flags uint32, context *fuse.Context) (nodefs.File, fuse.Status) {
	defer self.lock.RLocked()()
	p := absPath(name)
	st, err := self.fs.Stat(p)
	if err != nil {
		return nil, toStatus(err)
	}
	if st.IsDir() {
		return nil, fuse.Status(syscall.EISDIR)
	}
	return newFile(self, p), fuse.OK
}

func (self *ExtentFs) Truncate(name string, size uint64, context *fuse.Context) fuse.Status {
	defer self.lock.Locked()()
	return toStatus(self.fs.SetSize(absPath(name), size))
}

func (self *ExtentFs) utimens(p string, mtime *time.Time) fuse.Status {
	defer self.lock.Locked()()
	t := self.fs.Now()
	if mtime != nil {
		t = *mtime
	}
	return toStatus(self.fs.SetMtime(p, t))
}

// Utimens only records mtime; there is no atime on disk.
func (self *ExtentFs) Utimens(name string, atime *time.Time, mtime *time.Time, context *fuse.Context) fuse.Status {
	return self.utimens(absPath(name), mtime)
}

func (self *ExtentFs) Access(name string, mode uint32, context *fuse.Context) fuse.Status {
	defer self.lock.RLocked()()
	_, err := self.fs.Resolve(absPath(name))
	return toStatus(err)
}

func (self *ExtentFs) StatFs(name string) *fuse.StatfsOut {
	defer self.lock.RLocked()()
	st := self.fs.StatFs()
	return &fuse.StatfsOut{
		Blocks:  st.TotalBlocks,
		Bfree:   st.FreeBlocks,
		Bavail:  st.FreeBlocks,
		Files:   st.TotalInodes,
		Ffree:   st.FreeInodes,
		Bsize:   uint32(st.BlockSize),
		Frsize:  uint32(st.BlockSize),
		NameLen: uint32(st.NameMax),
	}
}

func (self *ExtentFs) OnUnmount() {
	defer self.lock.Locked()()
	if err := self.fs.Flush(); err != nil {
		mlog.Printf2("fuseops/fuseops", "flush on unmount failed: %v", err)
	}
}
