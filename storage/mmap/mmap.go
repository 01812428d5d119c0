/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Tue Feb 13 10:12:44 2018 mstenber
 * Last modified: Thu Feb 15 15:31:19 2018 mstenber
 * Edit time:     38 min
 *
 */

package mmap

import (
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/fingon/go-extentfs/storage/file"
	"github.com/fingon/go-extentfs/util"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// mmapStore maps the whole image file shared and read-write; Flush
// is msync.
type mmapStore struct {
	lock util.RWMutexLocked
	img  *file.Image
	data []byte
}

var _ storage.BlockStore = &mmapStore{}

func NewMmapStore(path string, blocks uint64) (storage.BlockStore, error) {
	img, err := file.OpenImage(path, blocks)
	if err != nil {
		return nil, err
	}
	size := int(img.Blocks * storage.BlockSize)
	data, err := unix.Mmap(int(img.File.Fd()), 0, size,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		img.Close()
		return nil, errors.Wrapf(err, "mmap %s", path)
	}
	mlog.Printf2("storage/mmap/mmap", "NewMmapStore %s: %d blocks", path, img.Blocks)
	return &mmapStore{img: img, data: data}, nil
}

func (self *mmapStore) BlockCount() uint64 {
	return self.img.Blocks
}

func (self *mmapStore) ReadBlock(idx uint64) ([]byte, error) {
	if err := storage.CheckRead(self.img.Blocks, idx); err != nil {
		return nil, err
	}
	defer self.lock.RLocked()()
	if self.data == nil {
		return nil, storage.ErrClosed
	}
	b := make([]byte, storage.BlockSize)
	copy(b, self.data[idx*storage.BlockSize:])
	return b, nil
}

func (self *mmapStore) WriteBlock(idx uint64, data []byte) error {
	if err := storage.CheckWrite(self.img.Blocks, idx, data); err != nil {
		return err
	}
	defer self.lock.Locked()()
	if self.data == nil {
		return storage.ErrClosed
	}
	copy(self.data[idx*storage.BlockSize:], data)
	return nil
}

func (self *mmapStore) Flush() error {
	defer self.lock.RLocked()()
	if self.data == nil {
		return storage.ErrClosed
	}
	return errors.Wrap(unix.Msync(self.data, unix.MS_SYNC), "msync")
}

func (self *mmapStore) Close() error {
	defer self.lock.Locked()()
	if self.data == nil {
		return storage.ErrClosed
	}
	err := unix.Munmap(self.data)
	self.data = nil
	if cerr := self.img.Close(); err == nil {
		err = cerr
	}
	return errors.Wrap(err, "close")
}
