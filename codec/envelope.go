/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sun Dec 24 16:42:58 2017 mstenber
 * Last modified: Mon Feb 19 09:40:27 2018 mstenber
 * Edit time:     31 min
 *
 */

package codec

import (
	"github.com/glycerine/greenpack/msgp"
	"github.com/pkg/errors"
)

// Envelopes are msgpack arrays, field order given by zid.

type EncryptedData struct {
	// nonce used for AES GCM
	Nonce []byte `zid:"0"`

	// EncryptedData is AES GCM encrypted (possibly CompressedData)
	EncryptedData []byte `zid:"1"`
}

type CompressionType byte

const (
	CompressionType_UNSET CompressionType = iota

	// The data has not been compressed.
	CompressionType_PLAIN

	// The data is compressed with Snappy.
	CompressionType_SNAPPY
)

type CompressedData struct {
	CompressionType CompressionType `zid:"0"`
	RawData         []byte          `zid:"1"`
}

var ErrBadEnvelope = errors.New("malformed codec envelope")

// greenpack exposes its readers as nil-safe methods on NilBitsStack.
var nbs *msgp.NilBitsStack

func (self *EncryptedData) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 2)
	b = msgp.AppendBytes(b, self.Nonce)
	b = msgp.AppendBytes(b, self.EncryptedData)
	return b, nil
}

func (self *EncryptedData) UnmarshalMsg(b []byte) (o []byte, err error) {
	sz, o, err := nbs.ReadArrayHeaderBytes(b)
	if err != nil {
		return
	}
	if sz != 2 {
		return o, errors.Wrapf(ErrBadEnvelope, "EncryptedData with %d fields", sz)
	}
	if self.Nonce, o, err = nbs.ReadBytesBytes(o, nil); err != nil {
		return
	}
	self.EncryptedData, o, err = nbs.ReadBytesBytes(o, nil)
	return
}

func (self *CompressedData) MarshalMsg(b []byte) ([]byte, error) {
	b = msgp.AppendArrayHeader(b, 2)
	b = msgp.AppendByte(b, byte(self.CompressionType))
	b = msgp.AppendBytes(b, self.RawData)
	return b, nil
}

func (self *CompressedData) UnmarshalMsg(b []byte) (o []byte, err error) {
	sz, o, err := nbs.ReadArrayHeaderBytes(b)
	if err != nil {
		return
	}
	if sz != 2 {
		return o, errors.Wrapf(ErrBadEnvelope, "CompressedData with %d fields", sz)
	}
	var ct byte
	if ct, o, err = nbs.ReadByteBytes(o); err != nil {
		return
	}
	self.CompressionType = CompressionType(ct)
	self.RawData, o, err = nbs.ReadBytesBytes(o, nil)
	return
}
