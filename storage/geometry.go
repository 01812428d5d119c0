/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 12 11:30:02 2018 mstenber
 * Last modified: Thu Feb 15 14:21:07 2018 mstenber
 * Edit time:     19 min
 *
 */

package storage

import (
	"github.com/pkg/errors"
	ucodec "github.com/ugorji/go/codec"
)

// Geometry is the self-description key-value backends keep next to
// the blocks; flat image files get it from the file size instead.
type Geometry struct {
	Blocks    uint64
	BlockSize int
}

var cborHandle ucodec.CborHandle

func (self Geometry) Encode() ([]byte, error) {
	var buf []byte
	enc := ucodec.NewEncoderBytes(&buf, &cborHandle)
	if err := enc.Encode(self); err != nil {
		return nil, errors.Wrap(err, "cbor encode")
	}
	return buf, nil
}

func DecodeGeometry(b []byte) (g Geometry, err error) {
	dec := ucodec.NewDecoderBytes(b, &cborHandle)
	if err = dec.Decode(&g); err != nil {
		err = errors.Wrap(err, "cbor decode")
	}
	return
}

// ResolveGeometry decides block count of a key-value store: stored
// is nil for a new store, blocks zero means 'whatever is there'.
func ResolveGeometry(stored []byte, blocks uint64) (g Geometry, isNew bool, err error) {
	if stored == nil {
		if blocks == 0 {
			err = ErrNoGeometry
			return
		}
		return Geometry{Blocks: blocks, BlockSize: BlockSize}, true, nil
	}
	g, err = DecodeGeometry(stored)
	if err != nil {
		return
	}
	if g.BlockSize != BlockSize {
		err = errors.Wrapf(ErrGeometryMismatch, "block size %d", g.BlockSize)
		return
	}
	if blocks != 0 && blocks != g.Blocks {
		err = errors.Wrapf(ErrGeometryMismatch, "have %d blocks, want %d", g.Blocks, blocks)
	}
	return
}
