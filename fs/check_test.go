/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Feb 16 15:01:12 2018 mstenber
 * Last modified: Tue Feb 20 17:30:05 2018 mstenber
 * Edit time:     49 min
 *
 */

package fs

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/fingon/go-extentfs/layout"
	"github.com/fingon/go-extentfs/util"
	"github.com/pkg/errors"
	"github.com/stvp/assert"
)

func TestCheckFindsProblems(t *testing.T) {
	t.Parallel()
	fs := ProdFs(t, 64, 8)
	_, err := fs.Create("/", "f", 0644, false)
	assert.Nil(t, err)
	_, err = fs.Write("/f", 0, ProdPattern(5000, 1))
	assert.Nil(t, err)
	ProdCheck(t, fs)

	// leaked block
	assert.Nil(t, fs.blocks.SetBits(50, 1))
	problems, err := fs.Check()
	assert.Nil(t, err)
	assert.Equal(t, len(problems), 2)
	assert.Nil(t, fs.blocks.ClearBits(50, 1))

	// counter out of step
	fs.sb.FreeInodes--
	problems, err = fs.Check()
	assert.Nil(t, err)
	assert.Equal(t, len(problems), 1)
	fs.sb.FreeInodes++

	// size not matching extents
	in := ProdInode(t, fs, "/f")
	in.Size = 9000
	assert.Nil(t, fs.putInode(in))
	problems, err = fs.Check()
	assert.Nil(t, err)
	assert.Equal(t, len(problems), 1)
	in.Size = 5000
	assert.Nil(t, fs.putInode(in))

	// dangling entry
	assert.Nil(t, fs.inodes.ClearBits(uint64(in.Self), 1))
	fs.sb.FreeInodes++
	problems, err = fs.Check()
	assert.Nil(t, err)
	assert.True(t, len(problems) > 0)
}

// Random operations against a model of the file contents; the
// accounting invariants have to hold after each step.
func TestRandomOps(t *testing.T) {
	t.Parallel()
	fs := ProdFs(t, 256, 16)
	r := util.NewRand(1)
	model := make(map[string][]byte)
	total := fs.StatFs().FreeBlocks
	for step := 0; step < 400; step++ {
		name := fmt.Sprintf("f%d", r.Intn(12))
		path := "/" + name
		data, exists := model[name]
		switch op := r.Intn(10); {
		case !exists:
			_, err := fs.Create("/", name, 0644, false)
			if errors.Cause(err) == ErrNoSpace {
				continue
			}
			assert.Nil(t, err)
			model[name] = []byte{}
		case op < 5:
			off := r.Intn(len(data) + 8000)
			buf := ProdPattern(r.Intn(12000)+1, byte(step))
			_, err := fs.Write(path, uint64(off), buf)
			if errors.Cause(err) == ErrNoSpace {
				continue
			}
			assert.Nil(t, err)
			if end := off + len(buf); end > len(data) {
				data = append(data, make([]byte, end-len(data))...)
			}
			copy(data[off:], buf)
			model[name] = data
		case op < 8:
			size := r.Intn(30000)
			err := fs.SetSize(path, uint64(size))
			if errors.Cause(err) == ErrNoSpace {
				continue
			}
			assert.Nil(t, err)
			if size > len(data) {
				data = append(data, make([]byte, size-len(data))...)
			}
			model[name] = data[:size]
		default:
			assert.Nil(t, fs.Remove("/", name, false))
			delete(model, name)
		}
		if step%25 == 0 {
			ProdCheck(t, fs)
		}
	}
	ProdCheck(t, fs)

	var used uint64
	for name, data := range model {
		got, err := fs.Read("/"+name, 0, len(data))
		assert.Nil(t, err)
		assert.True(t, bytes.Equal(got, data))
		st, err := fs.Stat("/" + name)
		assert.Nil(t, err)
		assert.Equal(t, st.Size, uint64(len(data)))
		used += st.Blocks
	}
	root, err := fs.Stat("/")
	assert.Nil(t, err)
	assert.Equal(t, fs.StatFs().FreeBlocks+used+root.Blocks, total)
	assert.Equal(t, fs.StatFs().FreeInodes+uint64(len(model))+1, uint64(16))
	assert.Equal(t, layout.RootIno, uint32(0))
}
