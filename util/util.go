/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Fri Dec 29 09:03:12 2017 mstenber
 * Last modified: Mon Feb 12 11:02:09 2018 mstenber
 * Edit time:     12 min
 *
 */

package util

import "encoding/binary"

func Uint32Bytes(n uint32) []byte {
	nb := make([]byte, 4)
	binary.BigEndian.PutUint32(nb, n)
	return nb
}

func Uint64Bytes(n uint64) []byte {
	nb := make([]byte, 8)
	binary.BigEndian.PutUint64(nb, n)
	return nb
}

// CeilDiv returns a/b rounded up; b must be nonzero.
func CeilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}

func UMin(i uint64, ints ...uint64) uint64 {
	for _, v := range ints {
		if v < i {
			i = v
		}
	}
	return i
}

func UMax(i uint64, ints ...uint64) uint64 {
	for _, v := range ints {
		if v > i {
			i = v
		}
	}
	return i
}

// IsZero returns true if every byte of b is zero.
func IsZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
