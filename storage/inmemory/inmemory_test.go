/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2018 Markus Stenberg
 *
 * Created:       Mon Feb 12 12:35:02 2018 mstenber
 * Last modified: Mon Feb 12 12:35:40 2018 mstenber
 * Edit time:     0 min
 *
 */

package inmemory

import (
	"testing"

	"github.com/fingon/go-extentfs/storage/storagetest"
)

func TestInMemoryStore(t *testing.T) {
	t.Parallel()
	storagetest.ProdBlockStore(t, NewInMemoryStore(7))
}
