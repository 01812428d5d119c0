/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Feb 23 11:10:02 2018 mstenber
 * Last modified: Fri Feb 23 12:44:39 2018 mstenber
 * Edit time:     41 min
 *
 */

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/fingon/go-extentfs/fs"
	"github.com/fingon/go-extentfs/fuseops"
	"github.com/fingon/go-extentfs/mlog"
	"github.com/fingon/go-extentfs/storage/cached"
	"github.com/fingon/go-extentfs/storage/factory"
	"github.com/hanwen/go-fuse/fuse"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s [options] MOUNTDIR IMAGE\n", os.Args[0])
		flag.PrintDefaults()
	}
	conf := factory.Configuration{CacheSize: 1024}
	conf.RegisterFlags(flag.CommandLine)
	configPath := flag.String("config", "", "TOML block store configuration file")
	cpuprofile := flag.String("cpuprofile", "", "CPU profile file")
	memprofile := flag.String("memprofile", "", "Memory profile file")
	allowOther := flag.Bool("allowother", false, "Allow other users to access the mount")
	flag.Parse()
	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(1)
	}
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}
	mountpoint := flag.Arg(0)
	conf.Path = flag.Arg(1)
	conf, err := conf.WithFile(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	store, err := factory.New(conf)
	if err != nil {
		log.Fatal(err)
	}
	myfs, err := fs.Open(store)
	if err != nil {
		store.Close()
		log.Fatal(err)
	}

	opts := &fuse.MountOptions{AllowOther: *allowOther,
		Name: "extentfs", FsName: conf.Path}
	if mlog.IsEnabled() {
		opts.Debug = true
	}
	server, err := fuseops.Mount(myfs, mountpoint, opts)
	if err != nil {
		myfs.Close()
		log.Fatal(err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		mlog.Printf2("cmd/extentfs/extentfs", "got %v, unmounting", sig)
		if err := server.Unmount(); err != nil {
			log.Printf("unmount failed: %v", err)
		}
	}()

	// loop is here
	server.Serve()

	hits, misses := cached.Stats(store)
	mlog.Printf2("cmd/extentfs/extentfs", "cache: %d hits, %d misses", hits, misses)
	if err = myfs.Close(); err != nil {
		log.Print(err)
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.WriteHeapProfile(f)
		f.Close()
	}
}
