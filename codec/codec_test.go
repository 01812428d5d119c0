/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Sun Dec 24 17:15:30 2017 mstenber
 * Last modified: Mon Feb 19 10:11:52 2018 mstenber
 * Edit time:     44 min
 *
 */

package codec

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

const compressible = "123456789123456789123456789123456789123456789123456789123456789123456789123456789123456789123456789"

func ProdCodecOnce(t *testing.T, text []byte, c Codec) {
	enc, err := c.EncodeBytes(text, nil)
	assert.Nil(t, err)
	dec, err := c.DecodeBytes(enc, nil)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(text, dec))
}

func ProdCodec(t *testing.T, c Codec) {
	ProdCodecOnce(t, []byte("foo"), c)
	ProdCodecOnce(t, []byte(compressible), c)
	ProdCodecOnce(t, make([]byte, 4096), c)
	rb := make([]byte, 4096)
	rand.Read(rb)
	ProdCodecOnce(t, rb, c)
}

func newEncryptingCodec(t *testing.T) *EncryptingCodec {
	c, err := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	assert.Nil(t, err)
	return c
}

func TestEncryptingCodec(t *testing.T) {
	t.Parallel()
	p := []byte("data")
	ad := []byte("ad")
	c := newEncryptingCodec(t)
	ProdCodec(t, c)

	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)

	// additional data is authenticated
	_, err = c.DecodeBytes(enc, ad)
	assert.True(t, err != nil)

	// random nonce; same payload does not encrypt the same way
	enc2, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	assert.True(t, !bytes.Equal(enc, enc2))
	dec, err := c.DecodeBytes(enc2, nil)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(p, dec))

	enc3, err := c.EncodeBytes(p, ad)
	assert.Nil(t, err)
	dec, err = c.DecodeBytes(enc3, ad)
	assert.Nil(t, err)
	assert.True(t, bytes.Equal(p, dec))

	// wrong password
	c2, err := EncryptingCodec{}.Init([]byte("bar"), []byte("salt"), 64)
	assert.Nil(t, err)
	_, err = c2.DecodeBytes(enc3, ad)
	assert.True(t, err != nil)
}

func TestCompressingCodec(t *testing.T) {
	t.Parallel()
	c := &CompressingCodec{}
	ProdCodec(t, c)

	enc, err := c.EncodeBytes([]byte(compressible), nil)
	assert.Nil(t, err)
	assert.True(t, len(enc) < len(compressible))

	zb, err := c.EncodeBytes(make([]byte, 4096), nil)
	assert.Nil(t, err)
	assert.True(t, len(zb) < 512)

	// incompressible data stays plain
	enc, err = c.EncodeBytes([]byte("x"), nil)
	assert.Nil(t, err)
	var cd CompressedData
	_, err = cd.UnmarshalMsg(enc)
	assert.Nil(t, err)
	assert.Equal(t, cd.CompressionType, CompressionType_PLAIN)
}

func TestCompressingCodecUnknownType(t *testing.T) {
	t.Parallel()
	cd := CompressedData{CompressionType: 42, RawData: []byte("x")}
	b, err := cd.MarshalMsg(nil)
	assert.Nil(t, err)
	_, err = (&CompressingCodec{}).DecodeBytes(b, nil)
	assert.Equal(t, errors.Cause(err), ErrUnknownCompression)
}

func TestEnvelopeTruncated(t *testing.T) {
	t.Parallel()
	ed := EncryptedData{Nonce: []byte("n"), EncryptedData: []byte("data")}
	b, err := ed.MarshalMsg(nil)
	assert.Nil(t, err)
	var ed2 EncryptedData
	_, err = ed2.UnmarshalMsg(b[:len(b)-2])
	assert.True(t, err != nil)
}

func TestCodecChain(t *testing.T) {
	t.Parallel()
	c1 := newEncryptingCodec(t)
	c2 := &CompressingCodec{}
	c := CodecChain{}.Init(c1, c2)
	assert.Equal(t, c.Len(), 2)
	ProdCodec(t, c)

	// compression happens before encryption; compressible data
	// shrinks even through the chain
	enc, err := c.EncodeBytes(make([]byte, 4096), []byte("ad"))
	assert.Nil(t, err)
	assert.True(t, len(enc) < 512)

	ProdCodec(t, CodecChain{}.Init())
}
