package resource

// Entry is a single name/value pair held by KeyValues.
type Entry struct {
	Key   string
	Value string
}

// KeyValues is an insertion-ordered string map used for attributes such as
// connectionParameters and metadata. Setting an existing key replaces its
// value in place, so duplicate keys read from a document resolve to the last
// value at the position of the first occurrence.
type KeyValues struct {
	entries []Entry
}

// NewKeyValues builds a KeyValues from alternating key, value arguments. A
// trailing key without a value is stored with an empty value.
func NewKeyValues(pairs ...string) *KeyValues {
	kv := &KeyValues{}
	for i := 0; i < len(pairs); i += 2 {
		value := ""
		if i+1 < len(pairs) {
			value = pairs[i+1]
		}
		kv.Set(pairs[i], value)
	}
	return kv
}

// Len returns the number of keys.
func (kv *KeyValues) Len() int {
	if kv == nil {
		return 0
	}
	return len(kv.entries)
}

// Get returns the value stored for key.
func (kv *KeyValues) Get(key string) (string, bool) {
	if kv == nil {
		return "", false
	}
	for _, e := range kv.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Set stores value under key.
func (kv *KeyValues) Set(key, value string) {
	for i := range kv.entries {
		if kv.entries[i].Key == key {
			kv.entries[i].Value = value
			return
		}
	}
	kv.entries = append(kv.entries, Entry{Key: key, Value: value})
}

// Delete removes key if present.
func (kv *KeyValues) Delete(key string) {
	if kv == nil {
		return
	}
	for i, e := range kv.entries {
		if e.Key == key {
			kv.entries = append(kv.entries[:i], kv.entries[i+1:]...)
			return
		}
	}
}

// Keys returns the keys in order.
func (kv *KeyValues) Keys() []string {
	if kv == nil {
		return nil
	}
	keys := make([]string, len(kv.entries))
	for i, e := range kv.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the ordered entries.
func (kv *KeyValues) Entries() []Entry {
	if kv == nil {
		return nil
	}
	return append([]Entry(nil), kv.entries...)
}

// Map returns the entries as a plain map, dropping order.
func (kv *KeyValues) Map() map[string]string {
	m := make(map[string]string, kv.Len())
	if kv == nil {
		return m
	}
	for _, e := range kv.entries {
		m[e.Key] = e.Value
	}
	return m
}

// Clone returns a deep copy.
func (kv *KeyValues) Clone() *KeyValues {
	if kv == nil {
		return &KeyValues{}
	}
	return &KeyValues{entries: append([]Entry(nil), kv.entries...)}
}

// Equal reports whether both hold the same entries in the same order.
func (kv *KeyValues) Equal(other *KeyValues) bool {
	if kv.Len() != other.Len() {
		return false
	}
	for i := 0; i < kv.Len(); i++ {
		if kv.entries[i] != other.entries[i] {
			return false
		}
	}
	return true
}
