/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package asset

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"hdxloop/internal/codec"
)

type entry struct {
	ready chan struct{}
	asset *Asset
	err   error
}

// Cache maps file paths to assets. It never evicts.
type Cache struct {
	mtx     sync.Mutex
	entries map[string]*entry

	read func(string) ([]byte, error)
	reg  *codec.Registry
}

type Option func(*Cache)

// WithReader replaces os.ReadFile.
func WithReader(read func(string) ([]byte, error)) Option {
	return func(c *Cache) { c.read = read }
}

// WithRegistry sets the decoders used by new assets.
func WithRegistry(reg *codec.Registry) Option {
	return func(c *Cache) { c.reg = reg }
}

func NewCache(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		read:    os.ReadFile,
	}
	for _, o := range opts {
		o(c)
	}
	if c.reg == nil {
		c.reg = codec.DefaultRegistry()
	}
	return c
}

// Get returns the asset for path, reading the file on first use.
// Concurrent callers for one path share a single read. A failed read is
// not cached.
func (c *Cache) Get(path string) (*Asset, error) {
	key := filepath.Clean(path)

	c.mtx.Lock()
	if e, ok := c.entries[key]; ok {
		c.mtx.Unlock()
		<-e.ready
		if e.err != nil {
			return nil, e.err
		}
		return e.asset, nil
	}
	e := &entry{ready: make(chan struct{})}
	c.entries[key] = e
	c.mtx.Unlock()

	data, err := c.read(key)
	if err != nil {
		e.err = fmt.Errorf("load %s: %w", key, err)
		c.mtx.Lock()
		delete(c.entries, key)
		c.mtx.Unlock()
	} else {
		e.asset = New(key, data, c.reg)
	}
	close(e.ready)

	return e.asset, e.err
}

// Lookup returns an asset only if it is already loaded.
func (c *Cache) Lookup(path string) (*Asset, bool) {
	c.mtx.Lock()
	e, ok := c.entries[filepath.Clean(path)]
	c.mtx.Unlock()
	if !ok {
		return nil, false
	}

	select {
	case <-e.ready:
	default:
		return nil, false
	}
	if e.err != nil {
		return nil, false
	}
	return e.asset, true
}

func (c *Cache) Len() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return len(c.entries)
}
