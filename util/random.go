/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Mar 16 13:56:39 2018 mstenber
 * Last modified: Tue Feb 27 09:20:12 2018 mstenber
 * Edit time:     8 min
 *
 */

package util

import (
	"log"
	"math/rand"
	"os"
	"strconv"

	"github.com/fingon/go-extentfs/mlog"
)

// NewRand returns a deterministic rng for randomized tests. SEED in
// the environment overrides seed so a failing run can be repeated
// with another sequence.
func NewRand(seed int64) *rand.Rand {
	if s := os.Getenv("SEED"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			log.Panic(err)
		}
		seed = v
	}
	mlog.Printf2("util/random", "NewRand %v", seed)
	return rand.New(rand.NewSource(seed))
}
