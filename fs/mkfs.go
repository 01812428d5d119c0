/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 14 10:01:12 2018 mstenber
 * Last modified: Tue Feb 20 10:20:44 2018 mstenber
 * Edit time:     35 min
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

type FormatOptions struct {
	Inodes uint64

	// Force formats even if the image looks formatted already.
	Force bool

	// Zero clears the whole image, not just the metadata region.
	Zero bool

	// Now is the root directory mtime; zero means time.Now().
	Now time.Time
}

// IsFormatted checks whether block 0 holds a sane superblock for
// this store.
func IsFormatted(store storage.BlockStore) bool {
	if store.BlockCount() == 0 {
		return false
	}
	b, err := store.ReadBlock(0)
	if err != nil {
		return false
	}
	sb, err := layout.DecodeSuperblock(b)
	return err == nil && uint64(sb.TotalBlocks) == store.BlockCount()
}

// Format initializes an empty filesystem with only the root
// directory.
func Format(store storage.BlockStore, opts FormatOptions) error {
	if !opts.Force && IsFormatted(store) {
		return ErrAlreadyFormatted
	}
	sb, err := layout.NewSuperblock(store.BlockCount(), opts.Inodes)
	if err != nil {
		return err
	}
	mlog.Printf2("fs/mkfs", "Format %d blocks, %d inodes; data at %d",
		sb.TotalBlocks, sb.TotalInodes, sb.DataRegionStart)
	upto := uint64(sb.DataRegionStart)
	if opts.Zero {
		upto = store.BlockCount()
	}
	for i := uint64(0); i < upto; i++ {
		if err = store.WriteBlock(i, zeroBlock); err != nil {
			return errors.Wrapf(err, "zeroing block %d", i)
		}
	}
	self := newFs(store, sb)
	if err = self.writeSuperblock(); err != nil {
		return err
	}
	if err = self.inodes.SetBits(uint64(layout.RootIno), 1); err != nil {
		return err
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	root := layout.NewInode(layout.RootIno, layout.ModeDir|0777, now)
	if err = self.putInode(&root); err != nil {
		return err
	}
	return store.Flush()
}
