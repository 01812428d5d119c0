/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 09:04:44 2017 mstenber
 * Last modified: Mon Feb 12 11:04:30 2018 mstenber
 * Edit time:     4 min
 *
 */

package util

import (
	"testing"

	"github.com/stvp/assert"
)

func TestCeilDiv(t *testing.T) {
	t.Parallel()
	assert.Equal(t, CeilDiv(0, 4096), uint64(0))
	assert.Equal(t, CeilDiv(1, 4096), uint64(1))
	assert.Equal(t, CeilDiv(4096, 4096), uint64(1))
	assert.Equal(t, CeilDiv(5000, 4096), uint64(2))
}

func TestMinMax(t *testing.T) {
	t.Parallel()
	assert.Equal(t, UMin(3, 7, 1, 9), uint64(1))
	assert.Equal(t, UMax(3, 7, 1, 9), uint64(9))
	assert.Equal(t, UMin(3), uint64(3))
}

func TestIsZero(t *testing.T) {
	t.Parallel()
	assert.True(t, IsZero(nil))
	assert.True(t, IsZero(make([]byte, 10)))
	assert.True(t, !IsZero([]byte{0, 0, 1}))
}

func TestUint64Bytes(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Uint64Bytes(0x0102), []byte{0, 0, 0, 0, 0, 0, 1, 2})
	assert.Equal(t, Uint32Bytes(0x0102), []byte{0, 0, 1, 2})
}
