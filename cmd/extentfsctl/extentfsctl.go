/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 26 09:12:40 2018 mstenber
 * Last modified: Mon Feb 26 11:30:02 2018 mstenber
 * Edit time:     62 min
 *
 */

// extentfsctl manipulates an unmounted extentfs image.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fingon/go-extentfs/fs"
	"github.com/fingon/go-extentfs/storage/factory"
	"github.com/google/subcommands"
)

// env is handed to every command as the first Execute argument.
type env struct {
	conf factory.Configuration
	out  io.Writer
}

// withFs opens the filesystem for the duration of cb; it is always
// closed (and so flushed) afterwards.
func (self *env) withFs(cb func(f *fs.Fs) error) subcommands.ExitStatus {
	store, err := factory.New(self.conf)
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}
	f, err := fs.Open(store)
	if err != nil {
		store.Close()
		log.Print(err)
		return subcommands.ExitFailure
	}
	err = cb(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func registerCommands(cmdr *subcommands.Commander) {
	cmdr.Register(cmdr.HelpCommand(), "")
	cmdr.Register(cmdr.FlagsCommand(), "")
	cmdr.Register(cmdr.CommandsCommand(), "")
	for _, cmd := range commands {
		cmdr.Register(cmd, "")
	}
	cmdr.Register(&truncateCommand{}, "")
	cmdr.Register(&fsckCommand{}, "")
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("extentfsctl: ")
	var e env
	e.out = os.Stdout
	e.conf.RegisterFlags(flag.CommandLine)
	image := flag.String("image", "", "Image path (file, mmap, bolt) or directory (badger)")
	configPath := flag.String("config", "", "TOML block store configuration file")
	registerCommands(subcommands.DefaultCommander)
	flag.Parse()

	e.conf.Path = *image
	conf, err := e.conf.WithFile(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	e.conf = conf
	if e.conf.Path == "" && flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "help", "flags", "commands":
		default:
			fmt.Fprintln(os.Stderr, "-image (or path in -config) is required")
			os.Exit(int(subcommands.ExitUsageError))
		}
	}
	os.Exit(int(subcommands.Execute(context.Background(), &e)))
}
