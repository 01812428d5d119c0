/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Wed Feb 14 09:02:33 2018 mstenber
 * Last modified: Wed Feb 14 09:40:10 2018 mstenber
 * Edit time:     6 min
 *
 */

package fs

import "github.com/pkg/errors"

// Error kinds returned by Fs operations. They are always wrapped with
// context; use errors.Cause to classify.
var (
	ErrNotFound          = errors.New("no such file or directory")
	ErrNotADirectory     = errors.New("not a directory")
	ErrNotAFile          = errors.New("is a directory")
	ErrAlreadyExists     = errors.New("file exists")
	ErrDirectoryNotEmpty = errors.New("directory not empty")
	ErrNoSpace           = errors.New("no space left")
	ErrNameTooLong       = errors.New("name too long")
	ErrInvalidPath       = errors.New("invalid path")
	ErrCorrupt           = errors.New("filesystem corrupt")
	ErrAlreadyFormatted  = errors.New("image already formatted")
)
