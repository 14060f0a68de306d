// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package filetype

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// DefaultCacheSize is the number of classifications a Cache keeps.
const DefaultCacheSize = 1024

type cacheKey struct {
	path    string
	size    int64
	modTime int64
}

// 🗃️ Cache remembers SniffFile results for unchanged files. A file counts as
// unchanged while its size and modification time are the same.
type Cache struct {
	fs  afero.Fs
	lru *lru.Cache[cacheKey, Result]
}

// 🏭 NewCache creates a cache holding up to size results
func NewCache(fs afero.Fs, size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[cacheKey, Result](size)
	if err != nil {
		return nil, errors.Errorf("creating classification cache: %w", err)
	}
	return &Cache{fs: fs, lru: c}, nil
}

// SniffFile is SniffFile with memoization. Files shorter than PrefixLen
// report a LengthError without being opened.
func (c *Cache) SniffFile(path string) (Result, error) {
	info, err := c.fs.Stat(path)
	if err != nil {
		return unknown, errors.Errorf("stat %s: %w", path, err)
	}

	key := cacheKey{path: path, size: info.Size(), modTime: info.ModTime().UnixNano()}
	if info.Size() < PrefixLen {
		return unknown, &LengthError{Got: int(info.Size()), Want: PrefixLen}
	}
	if res, ok := c.lru.Get(key); ok {
		return res, nil
	}

	res, err := SniffFile(c.fs, path)
	if err != nil {
		return res, err
	}
	c.lru.Add(key, res)
	return res, nil
}

// Len reports how many results are cached.
func (c *Cache) Len() int {
	return c.lru.Len()
}
