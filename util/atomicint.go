/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan 11 09:12:07 2018 mstenber
 * Last modified: Tue Feb 27 09:31:40 2018 mstenber
 * Edit time:     4 min
 *
 */

package util

import "sync/atomic"

// AtomicInt is a counter that is safe to bump from any goroutine.
type AtomicInt int64

func (self *AtomicInt) Get() int64 {
	return atomic.LoadInt64((*int64)(self))
}

func (self *AtomicInt) Add(value int64) int64 {
	return atomic.AddInt64((*int64)(self), value)
}

func (self *AtomicInt) Set(value int64) {
	atomic.StoreInt64((*int64)(self), value)
}
