/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Jan  3 15:44:41 2018 mstenber
 * Last modified: Thu Feb 15 15:20:48 2018 mstenber
 * Edit time:     97 min
 *
 */

package file

import (
	"os"

	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// Image is an opened, exclusively locked flat image file.
type Image struct {
	File   *os.File
	Lock   *flock.Flock
	Blocks uint64
}

// OpenImage opens (or with non-zero blocks, creates) an image file.
//
// An empty or missing file is sized to blocks blocks; an existing
// one keeps its size, which has to be a multiple of BlockSize.
func OpenImage(path string, blocks uint64) (*Image, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "flock %s", path)
	}
	if !locked {
		return nil, errors.Wrapf(storage.ErrLocked, "%s", path)
	}
	img, err := openLocked(path, blocks)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	img.Lock = lock
	return img, nil
}

func openLocked(path string, blocks uint64) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	size := uint64(fi.Size())
	if size == 0 && blocks > 0 {
		size = blocks * storage.BlockSize
		mlog.Printf2("storage/file/file", "OpenImage %s: sizing to %d bytes", path, size)
		if err = f.Truncate(int64(size)); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "truncate %s", path)
		}
	}
	if size == 0 || size%storage.BlockSize != 0 {
		f.Close()
		return nil, errors.Wrapf(storage.ErrBadImageSize, "%s: %d bytes", path, size)
	}
	if blocks != 0 && blocks != size/storage.BlockSize {
		f.Close()
		return nil, errors.Wrapf(storage.ErrGeometryMismatch, "%s: %d bytes", path, size)
	}
	return &Image{File: f, Blocks: size / storage.BlockSize}, nil
}

func (self *Image) Close() error {
	err := self.File.Close()
	if uerr := self.Lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

// fileStore does positioned reads and writes on the image file. Safe
// for concurrent use as ReadAt/WriteAt are.
type fileStore struct {
	img *Image
}

var _ storage.BlockStore = &fileStore{}

func NewFileStore(path string, blocks uint64) (storage.BlockStore, error) {
	img, err := OpenImage(path, blocks)
	if err != nil {
		return nil, err
	}
	return &fileStore{img: img}, nil
}

func (self *fileStore) BlockCount() uint64 {
	return self.img.Blocks
}

func (self *fileStore) ReadBlock(idx uint64) ([]byte, error) {
	if err := storage.CheckRead(self.img.Blocks, idx); err != nil {
		return nil, err
	}
	b := make([]byte, storage.BlockSize)
	if _, err := self.img.File.ReadAt(b, int64(idx*storage.BlockSize)); err != nil {
		return nil, errors.Wrapf(err, "read block %d", idx)
	}
	return b, nil
}

func (self *fileStore) WriteBlock(idx uint64, data []byte) error {
	if err := storage.CheckWrite(self.img.Blocks, idx, data); err != nil {
		return err
	}
	if _, err := self.img.File.WriteAt(data, int64(idx*storage.BlockSize)); err != nil {
		return errors.Wrapf(err, "write block %d", idx)
	}
	return nil
}

func (self *fileStore) Flush() error {
	return errors.Wrap(self.img.File.Sync(), "sync")
}

func (self *fileStore) Close() error {
	mlog.Printf2("storage/file/file", "fileStore.Close")
	return self.img.Close()
}
