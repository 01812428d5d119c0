/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Thu Jan  4 12:21:40 2018 mstenber
 * Last modified: Mon Feb 12 10:41:17 2018 mstenber
 * Edit time:     24 min
 *
 */

package util

import "sync"

// MutexLocked is sync.Mutex with convenience feature of
// defer x.Locked()().
type MutexLocked sync.Mutex

func (self *MutexLocked) Locked() (unlock func()) {
	mut := (*sync.Mutex)(self)
	mut.Lock()
	return func() {
		mut.Unlock()
	}
}

// RWMutexLocked is the readers/writer variant. Writers use
// defer x.Locked()(), readers defer x.RLocked()().
type RWMutexLocked sync.RWMutex

func (self *RWMutexLocked) Locked() (unlock func()) {
	mut := (*sync.RWMutex)(self)
	mut.Lock()
	return func() {
		mut.Unlock()
	}
}

func (self *RWMutexLocked) RLocked() (unlock func()) {
	mut := (*sync.RWMutex)(self)
	mut.RLock()
	return func() {
		mut.RUnlock()
	}
}
