/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Feb 23 09:58:40 2018 mstenber
 * Last modified: Fri Feb 23 10:11:02 2018 mstenber
 * Edit time:     9 min
 *
 */

package factory

import (
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stvp/assert"
)

func TestRegisterFlags(t *testing.T) {
	t.Parallel()
	conf := Configuration{CacheSize: 42}
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	conf.RegisterFlags(fs)
	assert.Equal(t, conf.Backend, DefaultBackend)
	assert.Equal(t, conf.CacheSize, 42)

	err := fs.Parse([]string{"-backend", "bolt", "-password", "pw", "-compress"})
	assert.Nil(t, err)
	assert.Equal(t, conf.Backend, "bolt")
	assert.Equal(t, conf.Password, "pw")
	assert.Equal(t, conf.Compress, true)
	assert.Equal(t, conf.CacheSize, 42)
}

func TestWithFile(t *testing.T) {
	t.Parallel()
	conf := Configuration{Backend: "file", Path: "/x"}
	got, err := conf.WithFile("")
	assert.Nil(t, err)
	assert.Equal(t, got, conf)

	dir, _ := ioutil.TempDir("", "flags")
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "conf.toml")
	err = ioutil.WriteFile(path, []byte("backend = \"badger\"\ncachesize = 7\n"), 0644)
	assert.Nil(t, err)
	got, err = conf.WithFile(path)
	assert.Nil(t, err)
	assert.Equal(t, got.Backend, "badger")
	assert.Equal(t, got.CacheSize, 7)
	assert.Equal(t, got.Path, "/x")

	_, err = conf.WithFile(filepath.Join(dir, "missing.toml"))
	assert.True(t, err != nil)
}
