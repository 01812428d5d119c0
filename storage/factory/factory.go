/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Jan  5 12:22:52 2018 mstenber
 * Last modified: Fri Feb 16 12:31:44 2018 mstenber
 * Edit time:     64 min
 *
 */

package factory

import (
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/fingon/go-extentfs/codec"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage"
	"github.com/fingon/go-extentfs/storage/badger"
	"github.com/fingon/go-extentfs/storage/bolt"
	"github.com/fingon/go-extentfs/storage/cached"
	"github.com/fingon/go-extentfs/storage/file"
	"github.com/fingon/go-extentfs/storage/inmemory"
	"github.com/fingon/go-extentfs/storage/mmap"
	"github.com/pkg/errors"
)

// Configuration describes a block store. It can be given on the
// command line or read from a TOML file.
type Configuration struct {
	Backend string `toml:"backend"`

	// Path is the image file (file, mmap), database file (bolt)
	// or directory (badger).
	Path string `toml:"path"`

	// Blocks is the size of a new store; zero opens an existing one.
	Blocks uint64 `toml:"blocks"`

	// Password enables encryption; only key-value backends
	// support codecs.
	Password   string `toml:"password"`
	Salt       string `toml:"salt"`
	Iterations int    `toml:"iterations"`
	Compress   bool   `toml:"compress"`

	// CacheSize is number of blocks kept in the ARC cache, if any.
	CacheSize int `toml:"cachesize"`
}

const DefaultBackend = "mmap"
const defaultIterations = 12345
const defaultSalt = "asdf"

var ErrUnknownBackend = errors.New("unknown backend")
var ErrCodecUnsupported = errors.New("backend does not support encryption or compression")

type factoryCallback func(conf Configuration, c codec.Codec) (storage.BlockStore, error)

var backendFactories = map[string]factoryCallback{
	"inmemory": func(conf Configuration, c codec.Codec) (storage.BlockStore, error) {
		return inmemory.NewInMemoryStore(conf.Blocks), nil
	},
	"file": func(conf Configuration, c codec.Codec) (storage.BlockStore, error) {
		return file.NewFileStore(conf.Path, conf.Blocks)
	},
	"mmap": func(conf Configuration, c codec.Codec) (storage.BlockStore, error) {
		return mmap.NewMmapStore(conf.Path, conf.Blocks)
	},
	"bolt": func(conf Configuration, c codec.Codec) (storage.BlockStore, error) {
		return bolt.NewBoltStore(conf.Path, conf.Blocks, c)
	},
	"badger": func(conf Configuration, c codec.Codec) (storage.BlockStore, error) {
		return badger.NewBadgerStore(conf.Path, conf.Blocks, c)
	},
}

// Flat images have fixed block slots, so they cannot store
// variable-length codec output.
var supportsCodec = map[string]bool{"bolt": true, "badger": true}

func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k := range backendFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadConfiguration reads a TOML file on top of conf; keys absent
// from the file keep the values given.
func LoadConfiguration(path string, conf Configuration) (Configuration, error) {
	_, err := toml.DecodeFile(path, &conf)
	if err != nil {
		return conf, errors.Wrapf(err, "toml %s", path)
	}
	return conf, nil
}

// Codec builds the codec chain the configuration asks for; an empty
// chain if none.
func (self Configuration) Codec() (*codec.CodecChain, error) {
	var codecs []codec.Codec
	if self.Password != "" {
		iterations := self.Iterations
		if iterations == 0 {
			iterations = defaultIterations
		}
		salt := self.Salt
		if salt == "" {
			salt = defaultSalt
		}
		ec, err := codec.EncryptingCodec{}.Init([]byte(self.Password), []byte(salt), iterations)
		if err != nil {
			return nil, err
		}
		codecs = append(codecs, ec)
	}
	if self.Compress {
		codecs = append(codecs, &codec.CompressingCodec{})
	}
	return codec.CodecChain{}.Init(codecs...), nil
}

func New(conf Configuration) (storage.BlockStore, error) {
	mlog.Printf2("storage/factory/factory", "f.New %s %s %d", conf.Backend, conf.Path, conf.Blocks)
	name := conf.Backend
	if name == "" {
		name = DefaultBackend
	}
	cb, ok := backendFactories[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", name)
	}
	c, err := conf.Codec()
	if err != nil {
		return nil, err
	}
	if c.Len() > 0 && !supportsCodec[name] {
		return nil, errors.Wrapf(ErrCodecUnsupported, "%q", name)
	}
	bs, err := cb(conf, c)
	if err != nil {
		return nil, err
	}
	if conf.CacheSize > 0 {
		mlog.Printf2("storage/factory/factory", " with cache of %d blocks", conf.CacheSize)
		bs = cached.NewCachedStore(bs, conf.CacheSize)
	}
	return bs, nil
}
