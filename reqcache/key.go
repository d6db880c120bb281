package reqcache

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// makeKey derives the cache key for a command invocation. Keys are
// "<command>:<hash>" so that all keys for one command share a prefix and can
// be evicted together.
//
// Arguments are canonicalized before hashing: the JSON round-trip below
// re-encodes every object as a map, and encoding/json writes map keys in
// sorted order, so two argument values with the same content always hash the
// same regardless of field or insertion order.
func makeKey(command string, args any) string {
	canon, err := canonicalize(args)
	if err != nil {
		// Arguments that cannot be serialized still need a usable key;
		// fall back to the Go-syntax representation.
		return command + ":" + hash(fmt.Sprintf("%#v", args))
	}
	return command + ":" + hash(string(canon))
}

func hash(s string) string {
	return strconv.FormatUint(xxhash.Sum64String(s), 16)
}

func canonicalize(args any) ([]byte, error) {
	if args == nil {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// commandPrefix is the key prefix shared by every key of a command.
func commandPrefix(command string) string {
	return command + ":"
}
