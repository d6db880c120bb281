package reqcache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeKeyDeterministic(t *testing.T) {
	a := makeKey("load_files", map[string]any{"case_id": "c1", "status": "reviewed"})
	b := makeKey("load_files", map[string]any{"case_id": "c1", "status": "reviewed"})
	assert.Equal(t, a, b)
}

func TestMakeKeyFieldOrderIndependent(t *testing.T) {
	type ab struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	type ba struct {
		B int `json:"b"`
		A int `json:"a"`
	}
	// Same content, different declaration order: must land on the same entry.
	assert.Equal(t, makeKey("x", ab{A: 1, B: 2}), makeKey("x", ba{B: 2, A: 1}))
}

func TestMakeKeyNestedOrderIndependent(t *testing.T) {
	type inner struct {
		Y int `json:"y"`
		X int `json:"x"`
	}
	type outerA struct {
		Nested inner  `json:"nested"`
		Name   string `json:"name"`
	}
	type outerB struct {
		Name   string `json:"name"`
		Nested inner  `json:"nested"`
	}
	a := makeKey("x", outerA{Nested: inner{X: 1, Y: 2}, Name: "n"})
	b := makeKey("x", outerB{Name: "n", Nested: inner{Y: 2, X: 1}})
	assert.Equal(t, a, b)
}

func TestMakeKeyDistinguishesArguments(t *testing.T) {
	a := makeKey("load_files", map[string]any{"case_id": "c1"})
	b := makeKey("load_files", map[string]any{"case_id": "c2"})
	assert.NotEqual(t, a, b)
}

func TestMakeKeyDistinguishesCommands(t *testing.T) {
	a := makeKey("load_files", map[string]any{"case_id": "c1"})
	b := makeKey("get_file_counts", map[string]any{"case_id": "c1"})
	assert.NotEqual(t, a, b)
}

func TestMakeKeyNilArgs(t *testing.T) {
	assert.Equal(t, makeKey("load_sources", nil), makeKey("load_sources", nil))
}

func TestMakeKeyCommandPrefix(t *testing.T) {
	key := makeKey("load_files", map[string]any{"case_id": "c1"})
	assert.True(t, strings.HasPrefix(key, commandPrefix("load_files")))
}

func TestMakeKeyUnserializableFallback(t *testing.T) {
	// Channels cannot be marshaled; the fallback representation must still
	// yield a stable, command-prefixed key rather than panicking.
	args := struct{ Ch chan int }{}
	a := makeKey("x", args)
	b := makeKey("x", args)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, commandPrefix("x")))
}
