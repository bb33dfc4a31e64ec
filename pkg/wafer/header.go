package wafer

// Header is an insertion-ordered set of "Key: Value" pairs.
// Setting an existing key updates its value in place.
type Header struct {
	keys   []string
	values map[string]string
}

// NewHeader returns an empty header.
func NewHeader() *Header {
	return &Header{values: make(map[string]string)}
}

// Set stores value under key, appending key if it is new.
func (h *Header) Set(key, value string) {
	if h.values == nil {
		h.values = make(map[string]string)
	}
	if _, ok := h.values[key]; !ok {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Get returns the value for key.
func (h *Header) Get(key string) (string, bool) {
	if h == nil {
		return "", false
	}
	v, ok := h.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (h *Header) Keys() []string {
	if h == nil {
		return nil
	}
	return append([]string(nil), h.keys...)
}

// Len returns the number of keys.
func (h *Header) Len() int {
	if h == nil {
		return 0
	}
	return len(h.keys)
}

// Clone returns an independent copy of h.
func (h *Header) Clone() *Header {
	out := NewHeader()
	if h == nil {
		return out
	}
	for _, k := range h.keys {
		out.Set(k, h.values[k])
	}
	return out
}
