package vector

import (
	"encoding/json"
	"fmt"
	"math"
)

// Metadata is stored alongside every chunk.
type Metadata struct {
	DocumentID   string            `json:"document_id"`
	DocumentName string            `json:"document_name"`
	DocumentHash string            `json:"document_hash"`
	FilePath     string            `json:"file_path,omitempty"`
	ChunkIndex   int               `json:"chunk_index"`
	TotalChunks  int               `json:"total_chunks"`
	CharCount    int               `json:"char_count"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// Get resolves a metadata key as used by filters.
func (m Metadata) Get(key string) (any, bool) {
	switch key {
	case "document_id":
		return m.DocumentID, true
	case "document_name":
		return m.DocumentName, true
	case "document_hash":
		return m.DocumentHash, true
	case "file_path":
		return m.FilePath, m.FilePath != ""
	case "chunk_index":
		return m.ChunkIndex, true
	case "total_chunks":
		return m.TotalChunks, true
	case "char_count":
		return m.CharCount, true
	}
	v, ok := m.Extra[key]
	return v, ok
}

// Map flattens the metadata into a single key/value map.
func (m Metadata) Map() map[string]any {
	out := make(map[string]any, 7+len(m.Extra))
	for k, v := range m.Extra {
		out[k] = v
	}
	out["document_id"] = m.DocumentID
	out["document_name"] = m.DocumentName
	out["document_hash"] = m.DocumentHash
	out["chunk_index"] = m.ChunkIndex
	out["total_chunks"] = m.TotalChunks
	out["char_count"] = m.CharCount
	if m.FilePath != "" {
		out["file_path"] = m.FilePath
	}
	return out
}

func metadataFromMap(raw map[string]any) Metadata {
	m := Metadata{
		DocumentID:   asString(raw["document_id"]),
		DocumentName: asString(raw["document_name"]),
		DocumentHash: asString(raw["document_hash"]),
		FilePath:     asString(raw["file_path"]),
		ChunkIndex:   asInt(raw["chunk_index"]),
		TotalChunks:  asInt(raw["total_chunks"]),
		CharCount:    asInt(raw["char_count"]),
	}
	for k, v := range raw {
		if isCoreKey(k) {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]string)
		}
		m.Extra[k] = fmt.Sprint(v)
	}
	return m
}

func (m Metadata) clone() Metadata {
	if m.Extra == nil {
		return m
	}
	extra := make(map[string]string, len(m.Extra))
	for k, v := range m.Extra {
		extra[k] = v
	}
	m.Extra = extra
	return m
}

func isCoreKey(k string) bool {
	switch k {
	case "document_id", "document_name", "document_hash", "file_path",
		"chunk_index", "total_chunks", "char_count":
		return true
	}
	return false
}

// Filter maps metadata keys to required values. A record is eligible only
// when every key is present and equal. Numbers compare by value, so a
// decoded JSON 3.0 matches a stored 3.
type Filter map[string]any

func (f Filter) Matches(m Metadata) bool {
	for key, want := range f {
		got, ok := m.Get(key)
		if !ok || !equalValues(got, want) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			return x == y
		}
		// extras are stored as strings; let "3" match 3
		if s, ok := b.(string); ok {
			return fmt.Sprint(a) == s
		}
		return false
	}
	switch x := a.(type) {
	case string:
		if s, ok := b.(string); ok {
			return x == s
		}
		if _, ok := asFloat(b); ok {
			return x == fmt.Sprint(b)
		}
		if v, ok := b.(bool); ok {
			return x == fmt.Sprint(v)
		}
	case bool:
		if v, ok := b.(bool); ok {
			return x == v
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func asInt(v any) int {
	f, ok := asFloat(v)
	if !ok || math.IsNaN(f) {
		return 0
	}
	return int(f)
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	}
	return fmt.Sprint(v)
}
