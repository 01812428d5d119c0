/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 26 12:10:44 2018 mstenber
 * Last modified: Mon Feb 26 13:01:29 2018 mstenber
 * Edit time:     34 min
 *
 */

package main

import (
	"bytes"
	"context"
	"flag"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fingon/go-extentfs/fs"
	"github.com/fingon/go-extentfs/storage/factory"
	"github.com/google/subcommands"
	"github.com/stvp/assert"
)

func ProdEnv(t *testing.T, dir string) *env {
	conf := factory.Configuration{Backend: "file",
		Path: filepath.Join(dir, "image"), Blocks: 64}
	store, err := factory.New(conf)
	assert.Nil(t, err)
	assert.Nil(t, fs.Format(store, fs.FormatOptions{Inodes: 8}))
	assert.Nil(t, store.Close())
	conf.Blocks = 0
	return &env{conf: conf, out: &bytes.Buffer{}}
}

type testCommander struct {
	cmds map[string]subcommands.Command
}

func newTestCommander() *testCommander {
	self := &testCommander{cmds: make(map[string]subcommands.Command)}
	for _, cmd := range commands {
		self.cmds[cmd.Name()] = cmd
	}
	self.cmds["truncate"] = &truncateCommand{}
	self.cmds["fsck"] = &fsckCommand{}
	return self
}

// run executes command line args and returns the status and output.
func (self *testCommander) run(t *testing.T, e *env, args ...string) (subcommands.ExitStatus, string) {
	cmd := self.cmds[args[0]]
	assert.True(t, cmd != nil)
	f := flag.NewFlagSet(args[0], flag.ContinueOnError)
	f.SetOutput(ioutil.Discard)
	cmd.SetFlags(f)
	assert.Nil(t, f.Parse(args[1:]))
	buf := e.out.(*bytes.Buffer)
	buf.Reset()
	status := cmd.Execute(context.Background(), f, e)
	return status, buf.String()
}

func TestCommands(t *testing.T) {
	dir, _ := ioutil.TempDir("", "extentfsctl")
	defer os.RemoveAll(dir)
	e := ProdEnv(t, dir)
	c := newTestCommander()

	local := filepath.Join(dir, "local")
	content := strings.Repeat("0123456789", 1000)
	assert.Nil(t, ioutil.WriteFile(local, []byte(content), 0644))

	status, _ := c.run(t, e, "mkdir", "/d")
	assert.Equal(t, status, subcommands.ExitSuccess)
	status, _ = c.run(t, e, "put", local, "/d/f")
	assert.Equal(t, status, subcommands.ExitSuccess)

	status, out := c.run(t, e, "cat", "/d/f")
	assert.Equal(t, status, subcommands.ExitSuccess)
	assert.Equal(t, out, content)

	status, out = c.run(t, e, "ls", "/d")
	assert.Equal(t, status, subcommands.ExitSuccess)
	assert.True(t, strings.Contains(out, "-rw-r--r--"))
	assert.True(t, strings.HasSuffix(out, " 10000 f\n"))

	status, out = c.run(t, e, "stat", "/d")
	assert.Equal(t, status, subcommands.ExitSuccess)
	assert.True(t, strings.Contains(out, "drwxr-xr-x"))
	assert.True(t, strings.Contains(out, "links:  2\n"))

	// put over an existing file replaces it
	assert.Nil(t, ioutil.WriteFile(local, []byte("short"), 0644))
	status, _ = c.run(t, e, "put", local, "/d/f")
	assert.Equal(t, status, subcommands.ExitSuccess)
	_, out = c.run(t, e, "cat", "/d/f")
	assert.Equal(t, out, "short")

	status, _ = c.run(t, e, "truncate", "-size", "3", "/d/f")
	assert.Equal(t, status, subcommands.ExitSuccess)
	_, out = c.run(t, e, "cat", "/d/f")
	assert.Equal(t, out, "sho")

	status, _ = c.run(t, e, "touch", "/d/g")
	assert.Equal(t, status, subcommands.ExitSuccess)
	status, _ = c.run(t, e, "touch", "/d/g")
	assert.Equal(t, status, subcommands.ExitSuccess)

	status, _ = c.run(t, e, "rm", "/d/f")
	assert.Equal(t, status, subcommands.ExitSuccess)
	status, _ = c.run(t, e, "rmdir", "/d")
	assert.Equal(t, status, subcommands.ExitFailure)
	status, _ = c.run(t, e, "rm", "/d/g")
	assert.Equal(t, status, subcommands.ExitSuccess)
	status, _ = c.run(t, e, "rmdir", "/d")
	assert.Equal(t, status, subcommands.ExitSuccess)

	status, out = c.run(t, e, "statfs")
	assert.Equal(t, status, subcommands.ExitSuccess)
	assert.True(t, strings.Contains(out, "blocks:      64 total, 60 free\n"))
	assert.True(t, strings.Contains(out, "inodes:      8 total, 7 free\n"))

	status, out = c.run(t, e, "fsck")
	assert.Equal(t, status, subcommands.ExitSuccess)
	assert.Equal(t, out, "")
}

func TestCommandErrors(t *testing.T) {
	dir, _ := ioutil.TempDir("", "extentfsctl")
	defer os.RemoveAll(dir)
	e := ProdEnv(t, dir)
	c := newTestCommander()

	status, _ := c.run(t, e, "cat", "/missing")
	assert.Equal(t, status, subcommands.ExitFailure)
	status, _ = c.run(t, e, "ls", "/", "extra")
	assert.Equal(t, status, subcommands.ExitUsageError)
	status, _ = c.run(t, e, "put", filepath.Join(dir, "nope"), "/x")
	assert.Equal(t, status, subcommands.ExitFailure)

	bad := &env{conf: factory.Configuration{Backend: "file",
		Path: filepath.Join(dir, "nonexistent")}, out: &bytes.Buffer{}}
	status, _ = c.run(t, bad, "statfs")
	assert.Equal(t, status, subcommands.ExitFailure)
}
