/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Feb 23 09:41:12 2018 mstenber
 * Last modified: Fri Feb 23 10:05:47 2018 mstenber
 * Edit time:     14 min
 *
 */

package factory

import (
	"flag"
	"fmt"
)

// RegisterFlags adds the block store flags shared by the commands to
// fs. The current values of self are used as flag defaults.
func (self *Configuration) RegisterFlags(fs *flag.FlagSet) {
	if self.Backend == "" {
		self.Backend = DefaultBackend
	}
	fs.StringVar(&self.Backend, "backend", self.Backend,
		fmt.Sprintf("Backend to use (possible: %v)", List()))
	fs.StringVar(&self.Password, "password", self.Password,
		"Password to encrypt blocks with (bolt, badger)")
	fs.StringVar(&self.Salt, "salt", self.Salt, "Salt for the password")
	fs.BoolVar(&self.Compress, "compress", self.Compress,
		"Compress blocks (bolt, badger)")
	fs.IntVar(&self.CacheSize, "cachesize", self.CacheSize,
		"Number of blocks to cache (0 = no cache)")
}

// WithFile applies the TOML file at path, if any, on top of flag
// values.
func (self Configuration) WithFile(path string) (Configuration, error) {
	if path == "" {
		return self, nil
	}
	return LoadConfiguration(path, self)
}
