/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 14 16:20:30 2018 mstenber
 * Last modified: Tue Feb 20 12:22:14 2018 mstenber
 * Edit time:     22 min
 *
 */

package fs

import (
	"strings"

	"github.com/fingon/go-extentfs/layout"
	"github.com/pkg/errors"
)

func splitPath(path string) ([]string, error) {
	if len(path) >= layout.PathMax {
		return nil, errors.Wrapf(ErrNameTooLong, "path of %d bytes", len(path))
	}
	if !strings.HasPrefix(path, "/") {
		return nil, errors.Wrapf(ErrInvalidPath, "%q is not absolute", path)
	}
	var names []string
	for _, name := range strings.Split(path, "/") {
		if name == "" {
			continue
		}
		if len(name) > layout.NameMax {
			return nil, errors.Wrapf(ErrNameTooLong, "%q", name)
		}
		names = append(names, name)
	}
	return names, nil
}

// Resolve walks path from the root and returns the inode number.
func (self *Fs) Resolve(path string) (uint32, error) {
	in, err := self.resolve(path)
	if err != nil {
		return 0, err
	}
	return in.Self, nil
}

func (self *Fs) resolve(path string) (*layout.Inode, error) {
	names, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	in, err := self.getInode(layout.RootIno)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if !in.IsDir() {
			return nil, errors.Wrapf(ErrNotADirectory, "%q in %q", name, path)
		}
		ino, _, err := self.lookup(in, name)
		if err != nil {
			return nil, errors.Wrapf(err, "%q", path)
		}
		if in, err = self.getInode(ino); err != nil {
			return nil, err
		}
	}
	return in, nil
}

func (self *Fs) resolveDir(path string) (*layout.Inode, error) {
	in, err := self.resolve(path)
	if err != nil {
		return nil, err
	}
	if !in.IsDir() {
		return nil, errors.Wrapf(ErrNotADirectory, "%q", path)
	}
	return in, nil
}

func (self *Fs) resolveFile(path string) (*layout.Inode, error) {
	in, err := self.resolve(path)
	if err != nil {
		return nil, err
	}
	if in.IsDir() {
		return nil, errors.Wrapf(ErrNotAFile, "%q", path)
	}
	return in, nil
}
