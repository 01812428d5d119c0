/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2017 Markus Stenberg
 *
 * Created:       Sat Dec 30 13:41:33 2017 mstenber
 * Last modified: Tue Feb 13 09:12:40 2018 mstenber
 * Edit time:     121 min
 *
 */

// mlog is maybe-log, or Markus' log. It is a small wrapper of the
// standard 'log' package (only Printf-style output) with two
// improvements:
//
// - the MLOG environment variable (or -mlog flag) holds a regular
// expression matched against the tag of the logging call site;
// non-matching calls cost essentially nothing (by default,
// everything is off)
//
// - call stack depth is used to indent the output, so nested engine
// operations read like a trace
package mlog

import (
	"bytes"
	"flag"
	"log"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

const (
	StateUninitialized int32 = iota
	StateInitializing
	StateDisabled
	StateEnabled
)

const maxDepth = 100

// status is accessed atomically; everything in state only with
// state.lock held.
var status int32 = StateUninitialized

var state struct {
	lock     sync.Mutex
	logger   *log.Logger
	pattern  string
	re       *regexp.Regexp
	tagDebug map[string]bool
	minDepth int
	callers  []uintptr
}

var flagPattern *string

// DumpGoroutineIDs prefixes output with the goroutine id; handy when
// the FUSE server runs requests in parallel.
var DumpGoroutineIDs = true

func init() {
	flagPattern = flag.String("mlog", "", "Enable logging based on the given file/tag regular expression")
	state.logger = log.New(os.Stderr, "", log.Ltime|log.Lmicroseconds)
	Reset()
}

// Reset returns the module to its initial state; next log call
// re-reads the environment.
func Reset() {
	state.lock.Lock()
	defer state.lock.Unlock()
	atomic.StoreInt32(&status, StateUninitialized)
	state.minDepth = maxDepth
	state.callers = make([]uintptr, maxDepth)
}

// IsEnabled can be used to check if mlog is in use at all before
// doing something expensive.
func IsEnabled() bool {
	if atomic.LoadInt32(&status) < StateDisabled {
		state.lock.Lock()
		initialize()
		state.lock.Unlock()
	}
	return atomic.LoadInt32(&status) == StateEnabled
}

// SetLogger overrides the output logger. The returned function
// restores the previous one.
func SetLogger(l *log.Logger) (undo func()) {
	state.lock.Lock()
	defer state.lock.Unlock()
	old := state.logger
	state.logger = l
	return func() {
		state.lock.Lock()
		defer state.lock.Unlock()
		state.logger = old
	}
}

// SetPattern sets the pattern by hand, overriding the environment.
// The returned function restores the previous pattern.
func SetPattern(p string) (undo func()) {
	state.lock.Lock()
	defer state.lock.Unlock()
	old := state.pattern
	usePattern(p)
	return func() {
		state.lock.Lock()
		defer state.lock.Unlock()
		usePattern(old)
	}
}

func usePattern(p string) {
	state.pattern = p
	if p == "" {
		atomic.StoreInt32(&status, StateDisabled)
		return
	}
	state.re = regexp.MustCompile(p)
	state.tagDebug = make(map[string]bool)
	atomic.StoreInt32(&status, StateEnabled)
}

func initialize() {
	if !atomic.CompareAndSwapInt32(&status, StateUninitialized, StateInitializing) {
		return
	}
	p := os.Getenv("MLOG")
	if flagPattern != nil && *flagPattern != "" {
		p = *flagPattern
	}
	usePattern(p)
}

// Printf is drop-in replacement of log.Printf; the tag is the source
// file of the caller, which costs a runtime.Caller() whenever mlog
// is enabled.
func Printf(format string, args ...interface{}) {
	if atomic.LoadInt32(&status) == StateDisabled {
		return
	}
	_, file, _, ok := runtime.Caller(1)
	if !ok {
		return
	}
	Printf2(file, format, args...)
}

// Printf2 is the preferred variant; the caller supplies the tag
// (conventionally "package/file") so there is no runtime penalty
// when the pattern does not match.
func Printf2(tag string, format string, args ...interface{}) {
	st := atomic.LoadInt32(&status)
	if st == StateDisabled {
		return
	}
	state.lock.Lock()
	defer state.lock.Unlock()
	if st < StateDisabled {
		initialize()
		if atomic.LoadInt32(&status) != StateEnabled {
			return
		}
	}
	debug, ok := state.tagDebug[tag]
	if !ok {
		debug = state.re.MatchString(tag)
		state.tagDebug[tag] = debug
	}
	if !debug {
		return
	}
	depth := runtime.Callers(1, state.callers)
	if depth < state.minDepth {
		state.minDepth = depth
	}
	depth -= state.minDepth
	if depth > 0 {
		format = strings.Repeat(".", depth) + format
	}
	if DumpGoroutineIDs {
		format = strconv.FormatUint(goroutineID(), 10) + " " + format
	}
	state.logger.Printf(format, args...)
}

// goroutineID parses the id out of the runtime.Stack header.
func goroutineID() uint64 {
	b := make([]byte, 64)
	b = b[:runtime.Stack(b, false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	n, _ := strconv.ParseUint(string(b), 10, 64)
	return n
}
