/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 26 09:40:18 2018 mstenber
 * Last modified: Mon Feb 26 12:02:55 2018 mstenber
 * Edit time:     88 min
 *
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"time"

	"github.com/fingon/go-extentfs/fs"
	"github.com/fingon/go-extentfs/layout"
	"github.com/google/subcommands"
	"github.com/pkg/errors"
)

// chunkSize bounds the size of single engine read or write.
const chunkSize = 1 << 20

var errInconsistent = errors.New("filesystem has problems")

// simpleCommand is a flagless command taking exactly nargs
// arguments.
type simpleCommand struct {
	name, synopsis, usage string
	nargs                 int
	run                   func(e *env, f *fs.Fs, args []string) error
}

func (self *simpleCommand) Name() string     { return self.name }
func (self *simpleCommand) Synopsis() string { return self.synopsis }
func (self *simpleCommand) Usage() string    { return self.usage + "\n" }

func (self *simpleCommand) SetFlags(f *flag.FlagSet) {}

func (self *simpleCommand) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != self.nargs {
		f.Usage()
		return subcommands.ExitUsageError
	}
	e := args[0].(*env)
	return e.withFs(func(myfs *fs.Fs) error {
		return self.run(e, myfs, f.Args())
	})
}

// splitPath returns the parent directory and name of p.
func splitPath(p string) (string, string) {
	return path.Split(path.Clean("/" + p))
}

func modeString(mode uint32) string {
	fm := os.FileMode(mode & 0777)
	if mode&layout.ModeTypeMask == layout.ModeDir {
		fm |= os.ModeDir
	}
	return fm.String()
}

func runLs(e *env, f *fs.Fs, args []string) error {
	entries, err := f.List(args[0])
	if err != nil {
		return err
	}
	for _, de := range entries {
		st, err := f.Stat(path.Join(args[0], de.Name))
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "%6d %s %10d %s\n", de.Ino, modeString(st.Mode),
			st.Size, de.Name)
	}
	return nil
}

func runStat(e *env, f *fs.Fs, args []string) error {
	st, err := f.Stat(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "inode:  %d\n", st.Ino)
	fmt.Fprintf(e.out, "mode:   %s (%o)\n", modeString(st.Mode), st.Mode)
	fmt.Fprintf(e.out, "size:   %d\n", st.Size)
	fmt.Fprintf(e.out, "links:  %d\n", st.Links)
	fmt.Fprintf(e.out, "blocks: %d\n", st.Blocks)
	fmt.Fprintf(e.out, "mtime:  %s\n", st.Mtime.Format(time.RFC3339Nano))
	return nil
}

func runCat(e *env, f *fs.Fs, args []string) error {
	st, err := f.Stat(args[0])
	if err != nil {
		return err
	}
	for off := uint64(0); off < st.Size; off += chunkSize {
		n := st.Size - off
		if n > chunkSize {
			n = chunkSize
		}
		b, err := f.Read(args[0], off, int(n))
		if err != nil {
			return err
		}
		if _, err = e.out.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func runPut(e *env, f *fs.Fs, args []string) error {
	data, err := ioutil.ReadFile(args[0])
	if err != nil {
		return err
	}
	dst := args[1]
	_, err = f.Stat(dst)
	if errors.Cause(err) == fs.ErrNotFound {
		parent, name := splitPath(dst)
		_, err = f.Create(parent, name, 0644, false)
	}
	if err != nil {
		return err
	}
	if err = f.SetSize(dst, 0); err != nil {
		return err
	}
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if _, err = f.Write(dst, uint64(off), data[off:end]); err != nil {
			return err
		}
	}
	return nil
}

func runMkdir(e *env, f *fs.Fs, args []string) error {
	parent, name := splitPath(args[0])
	_, err := f.Create(parent, name, 0755, true)
	return err
}

func runRm(e *env, f *fs.Fs, args []string) error {
	parent, name := splitPath(args[0])
	return f.Remove(parent, name, false)
}

func runRmdir(e *env, f *fs.Fs, args []string) error {
	parent, name := splitPath(args[0])
	return f.Remove(parent, name, true)
}

func runTouch(e *env, f *fs.Fs, args []string) error {
	_, err := f.Stat(args[0])
	if errors.Cause(err) == fs.ErrNotFound {
		parent, name := splitPath(args[0])
		_, err = f.Create(parent, name, 0644, false)
		return err
	}
	if err != nil {
		return err
	}
	return f.SetMtime(args[0], f.Now())
}

func runStatFs(e *env, f *fs.Fs, args []string) error {
	st := f.StatFs()
	fmt.Fprintf(e.out, "block size:  %d\n", st.BlockSize)
	fmt.Fprintf(e.out, "blocks:      %d total, %d free\n", st.TotalBlocks, st.FreeBlocks)
	fmt.Fprintf(e.out, "inodes:      %d total, %d free\n", st.TotalInodes, st.FreeInodes)
	fmt.Fprintf(e.out, "name length: %d\n", st.NameMax)
	return nil
}

var commands = []*simpleCommand{
	{name: "ls", synopsis: "list a directory", usage: "ls PATH", nargs: 1, run: runLs},
	{name: "stat", synopsis: "show inode of a path", usage: "stat PATH", nargs: 1, run: runStat},
	{name: "cat", synopsis: "write file content to stdout", usage: "cat PATH", nargs: 1, run: runCat},
	{name: "put", synopsis: "copy a local file in", usage: "put LOCALFILE PATH", nargs: 2, run: runPut},
	{name: "mkdir", synopsis: "create a directory", usage: "mkdir PATH", nargs: 1, run: runMkdir},
	{name: "rm", synopsis: "remove a file", usage: "rm PATH", nargs: 1, run: runRm},
	{name: "rmdir", synopsis: "remove an empty directory", usage: "rmdir PATH", nargs: 1, run: runRmdir},
	{name: "touch", synopsis: "create a file or update its mtime", usage: "touch PATH", nargs: 1, run: runTouch},
	{name: "statfs", synopsis: "show filesystem usage", usage: "statfs", nargs: 0, run: runStatFs},
}

type truncateCommand struct {
	size uint64
}

func (*truncateCommand) Name() string     { return "truncate" }
func (*truncateCommand) Synopsis() string { return "set the size of a file" }
func (*truncateCommand) Usage() string    { return "truncate -size N PATH\n" }

func (self *truncateCommand) SetFlags(f *flag.FlagSet) {
	f.Uint64Var(&self.size, "size", 0, "New size in bytes")
}

func (self *truncateCommand) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	e := args[0].(*env)
	return e.withFs(func(myfs *fs.Fs) error {
		return myfs.SetSize(f.Arg(0), self.size)
	})
}

type fsckCommand struct {
	quiet bool
}

func (*fsckCommand) Name() string     { return "fsck" }
func (*fsckCommand) Synopsis() string { return "check filesystem consistency" }
func (*fsckCommand) Usage() string    { return "fsck [-q]\n" }

func (self *fsckCommand) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&self.quiet, "q", false, "Only set the exit status")
}

func (self *fsckCommand) Execute(_ context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	e := args[0].(*env)
	return e.withFs(func(myfs *fs.Fs) error {
		problems, err := myfs.Check()
		if err != nil {
			return err
		}
		if !self.quiet {
			for _, p := range problems {
				fmt.Fprintln(e.out, p)
			}
		}
		if len(problems) > 0 {
			return errors.Wrapf(errInconsistent, "%d problems", len(problems))
		}
		return nil
	})
}
