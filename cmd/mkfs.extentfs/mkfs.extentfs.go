/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Feb 23 10:20:31 2018 mstenber
 * Last modified: Fri Feb 23 11:02:14 2018 mstenber
 * Edit time:     35 min
 *
 */

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/fingon/go-extentfs/fs"
	"github.com/fingon/go-extentfs/storage"
	"github.com/fingon/go-extentfs/storage/factory"
	"github.com/pkg/errors"
)

// blocksPerInode is used when -i is not given.
const blocksPerInode = 16

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s [options] IMAGE\n", os.Args[0])
		flag.PrintDefaults()
	}
	var conf factory.Configuration
	conf.RegisterFlags(flag.CommandLine)
	configPath := flag.String("config", "", "TOML block store configuration file")
	inodes := flag.Uint64("i", 0, fmt.Sprintf("Number of inodes (0 = one per %d blocks)", blocksPerInode))
	force := flag.Bool("f", false, "Format even if the image is formatted already")
	zero := flag.Bool("z", false, "Zero the whole image, not just the metadata")
	size := flag.Uint64("size", 0, "Size in bytes to create the image with (0 = use existing)")
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}
	if *size%storage.BlockSize != 0 {
		log.Fatalf("-size %d is not a multiple of %d", *size, storage.BlockSize)
	}
	conf.Path = flag.Arg(0)
	conf.Blocks = *size / storage.BlockSize
	conf, err := conf.WithFile(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	store, err := factory.New(conf)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	n := *inodes
	if n == 0 {
		n = store.BlockCount() / blocksPerInode
		if n == 0 {
			n = 1
		}
	}
	err = fs.Format(store, fs.FormatOptions{Inodes: n, Force: *force, Zero: *zero})
	if errors.Cause(err) == fs.ErrAlreadyFormatted {
		store.Close()
		log.Fatalf("%s: already formatted (use -f to override)", conf.Path)
	}
	if err != nil {
		store.Close()
		log.Fatal(err)
	}
	myfs, err := fs.Open(store)
	if err != nil {
		log.Fatal(err)
	}
	sb := myfs.Superblock()
	fmt.Printf("%s: %d blocks, %d inodes\n", conf.Path, sb.TotalBlocks, sb.TotalInodes)
	fmt.Printf("inode bitmap at %d, inode table at %d, data at %d (%d blocks free)\n",
		sb.InodeBitmapStart, sb.InodeTableStart, sb.DataRegionStart, sb.FreeBlocks)
}
