/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Fri Feb 16 10:20:14 2018 mstenber
 * Last modified: Tue Feb 20 17:02:40 2018 mstenber
 * Edit time:     41 min
 *
 */

package fs

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/fingon/go-extentfs/layout"
	"github.com/google/go-cmp/cmp"
	"github.com/stvp/assert"
)

func ProdNames(t *testing.T, fs *Fs, path string) []string {
	l, err := fs.List(path)
	assert.Nil(t, err)
	names := make([]string, len(l))
	for i, e := range l {
		names[i] = e.Name
	}
	return names
}

func TestRemoveSwapsLast(t *testing.T) {
	t.Parallel()
	fs := ProdFs(t, 64, 8)
	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := fs.Create("/", name, 0644, false)
		assert.Nil(t, err)
	}
	assert.Nil(t, fs.Remove("/", "b", false))
	assert.Equal(t, cmp.Diff(ProdNames(t, fs, "/"), []string{"a", "d", "c"}), "")
	assert.Nil(t, fs.Remove("/", "c", false))
	assert.Equal(t, cmp.Diff(ProdNames(t, fs, "/"), []string{"a", "d"}), "")
	ProdCheck(t, fs)
}

func TestManyEntries(t *testing.T) {
	t.Parallel()
	fs := ProdFs(t, 64, 64)
	_, err := fs.Create("/", "d", 0755, true)
	assert.Nil(t, err)
	var names []string
	for i := 0; i < 40; i++ {
		name := fmt.Sprintf("entry-%d", i)
		names = append(names, name)
		_, err = fs.Create("/d", name, 0644, i%5 == 0)
		assert.Nil(t, err)
	}
	st, err := fs.Stat("/d")
	assert.Nil(t, err)
	assert.Equal(t, st.Size, uint64(40*layout.DirentSize))
	// 16 + 16 + 8 entries and the extent array
	assert.Equal(t, st.Blocks, uint64(4))
	assert.Equal(t, st.Links, uint32(2+8))
	for _, name := range names {
		_, err = fs.Stat("/d/" + name)
		assert.Nil(t, err)
	}
	ProdCheck(t, fs)

	r := rand.New(rand.NewSource(42))
	r.Shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	for len(names) > 0 {
		name := names[0]
		names = names[1:]
		var i int
		fmt.Sscanf(name, "entry-%d", &i)
		assert.Nil(t, fs.Remove("/d", name, i%5 == 0))
		got := ProdNames(t, fs, "/d")
		sort.Strings(got)
		want := append([]string{}, names...)
		sort.Strings(want)
		assert.Equal(t, cmp.Diff(got, want), "")
		st, err = fs.Stat("/d")
		assert.Nil(t, err)
		assert.Equal(t, st.Size%layout.DirentSize, uint64(0))
		if len(names)%8 == 0 {
			ProdCheck(t, fs)
		}
	}
	st, err = fs.Stat("/d")
	assert.Nil(t, err)
	assert.Equal(t, st.Blocks, uint64(0))
	assert.Equal(t, st.Links, uint32(2))
	ProdCheck(t, fs)
}

func TestNestedDirectories(t *testing.T) {
	t.Parallel()
	fs := ProdFs(t, 64, 16)
	path := ""
	for i := 0; i < 10; i++ {
		_, err := fs.Create(path+"/", fmt.Sprintf("l%d", i), 0755, true)
		assert.Nil(t, err)
		path = fmt.Sprintf("%s/l%d", path, i)
	}
	_, err := fs.Create(path, "leaf", 0644, false)
	assert.Nil(t, err)
	_, err = fs.Write(path+"/leaf", 0, []byte("deep"))
	assert.Nil(t, err)
	got, err := fs.Read(path+"/leaf", 0, 4)
	assert.Nil(t, err)
	assert.Equal(t, string(got), "deep")
	st, err := fs.Stat(path)
	assert.Nil(t, err)
	assert.True(t, st.IsDir())
	ProdCheck(t, fs)
}
