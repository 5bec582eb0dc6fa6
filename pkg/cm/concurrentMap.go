package cm

import "sync"

// ConcurrentMap wraps around sync.Map
type ConcurrentMap[K comparable, V any] struct {
	m sync.Map
}

// Set adds or updates a value in the map for a given key.
func (cm *ConcurrentMap[K, V]) Set(key K, value V) {
	cm.m.Store(key, value)
}

// Get retrieves the value stored for key and whether one was present.
func (cm *ConcurrentMap[K, V]) Get(key K) (V, bool) {
	value, ok := cm.m.Load(key)
	if !ok {
		var zeroValue V
		return zeroValue, false
	}
	return value.(V), true
}

func (cm *ConcurrentMap[K, V]) Delete(key K) {
	cm.m.Delete(key)
}

// Range calls f for every entry until f returns false.
func (cm *ConcurrentMap[K, V]) Range(f func(key K, value V) bool) {
	cm.m.Range(func(key, value any) bool {
		return f(key.(K), value.(V))
	})
}

func (cm *ConcurrentMap[K, V]) Len() int {
	n := 0
	cm.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
