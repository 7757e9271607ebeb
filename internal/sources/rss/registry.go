package rss

import (
	"fmt"
	"sync"
)

var (
	loaders = make(map[string]SourceLoader)
	mu      sync.RWMutex
)

func RegisterLoader(kind string, loader SourceLoader) {
	mu.Lock()
	defer mu.Unlock()
	loaders[kind] = loader
}

func GetLoader(kind string) (SourceLoader, error) {
	mu.RLock()
	defer mu.RUnlock()

	loader, exists := loaders[kind]
	if !exists {
		return nil, fmt.Errorf("unknown feed list kind: %s", kind)
	}

	return loader, nil
}
