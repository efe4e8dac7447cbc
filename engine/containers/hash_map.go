package containers

// HashMap is an unordered map whose identity comes from a KeyPolicy instead of
// Go's built-in key equality. Not safe for concurrent use.
type HashMap[K any, V any] struct {
	policy  KeyPolicy[K]
	buckets map[uint64][]*mapEntry[K, V]
	len     int
}

type mapEntry[K any, V any] struct {
	key   K
	value V
}

func NewHashMap[K any, V any](policy KeyPolicy[K]) *HashMap[K, V] {
	return &HashMap[K, V]{
		policy:  policy,
		buckets: make(map[uint64][]*mapEntry[K, V]),
	}
}

func (m *HashMap[K, V]) Get(key K) (V, bool) {
	for _, e := range m.buckets[m.policy.Hash(key)] {
		if m.policy.Equal(e.key, key) {
			return e.value, true
		}
	}
	var zero V
	return zero, false
}

// Put inserts or replaces the value stored under key.
func (m *HashMap[K, V]) Put(key K, value V) {
	hash := m.policy.Hash(key)
	for _, e := range m.buckets[hash] {
		if m.policy.Equal(e.key, key) {
			e.value = value
			return
		}
	}
	m.buckets[hash] = append(m.buckets[hash], &mapEntry[K, V]{key: key, value: value})
	m.len++
}

// Delete removes key and reports whether it was present.
func (m *HashMap[K, V]) Delete(key K) bool {
	hash := m.policy.Hash(key)
	bucket := m.buckets[hash]
	for i, e := range bucket {
		if !m.policy.Equal(e.key, key) {
			continue
		}
		bucket[i] = bucket[len(bucket)-1]
		bucket[len(bucket)-1] = nil
		bucket = bucket[:len(bucket)-1]
		if len(bucket) == 0 {
			delete(m.buckets, hash)
		} else {
			m.buckets[hash] = bucket
		}
		m.len--
		return true
	}
	return false
}

// Range calls fn for every entry in unspecified order until fn returns false.
// fn must not modify the map.
func (m *HashMap[K, V]) Range(fn func(key K, value V) bool) {
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			if !fn(e.key, e.value) {
				return
			}
		}
	}
}

// DeleteFunc removes every entry for which del returns true and returns the
// removed values.
func (m *HashMap[K, V]) DeleteFunc(del func(key K, value V) bool) []V {
	var keys []K
	var removed []V
	m.Range(func(k K, v V) bool {
		if del(k, v) {
			keys = append(keys, k)
			removed = append(removed, v)
		}
		return true
	})
	for _, k := range keys {
		m.Delete(k)
	}
	return removed
}

func (m *HashMap[K, V]) Len() int {
	return m.len
}

// Clear drops every entry.
func (m *HashMap[K, V]) Clear() {
	m.buckets = make(map[uint64][]*mapEntry[K, V])
	m.len = 0
}
