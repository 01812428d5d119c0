/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 12 10:04:51 2018 mstenber
 * Last modified: Thu Feb 15 14:20:33 2018 mstenber
 * Edit time:     48 min
 *
 */

// storage package provides the fixed-size block device abstraction
// the filesystem engine is written against, and helpers shared by the
// backends in its subpackages.
//
// Block stores deal with whole blocks only; the engine does all
// byte-granular work on the copies it gets from ReadBlock.
package storage

import (
	"github.com/fingon/go-extentfs/util"
	"github.com/pkg/errors"
)

const BlockSize = 4096

var (
	ErrOutOfRange       = errors.New("block index out of range")
	ErrBadBlockSize     = errors.New("block data is not BlockSize bytes")
	ErrBadImageSize     = errors.New("image size is not a positive multiple of BlockSize")
	ErrLocked           = errors.New("image is locked by another process")
	ErrNoGeometry       = errors.New("store has no geometry and block count not given")
	ErrGeometryMismatch = errors.New("store geometry does not match requested block count")
	ErrClosed           = errors.New("store is closed")
)

// BlockStore is random-access storage of BlockCount() blocks of
// BlockSize bytes each. Blocks never written read back as zeroes.
type BlockStore interface {
	BlockCount() uint64

	// ReadBlock returns a private copy of the block.
	ReadBlock(idx uint64) ([]byte, error)

	// WriteBlock replaces the block; data must be exactly
	// BlockSize bytes and is not retained.
	WriteBlock(idx uint64, data []byte) error

	Flush() error
	Close() error
}

// CheckRead validates a ReadBlock call against the block count.
func CheckRead(count, idx uint64) error {
	if idx >= count {
		return errors.Wrapf(ErrOutOfRange, "block %d/%d", idx, count)
	}
	return nil
}

// CheckWrite validates a WriteBlock call.
func CheckWrite(count, idx uint64, data []byte) error {
	if err := CheckRead(count, idx); err != nil {
		return err
	}
	if len(data) != BlockSize {
		return errors.Wrapf(ErrBadBlockSize, "block %d: %d bytes", idx, len(data))
	}
	return nil
}

// BlockKey is the key under which key-value backends store block
// idx; big-endian so that key order matches block order.
func BlockKey(idx uint64) []byte {
	return util.Uint64Bytes(idx)
}
