package ir

import (
	"slices"
	"unicode/utf16"
)

// jsonValue is the constrained value tree canonical encoding works on.
// Only jsonString, jsonInt, jsonBool, jsonArray and jsonObject implement it.
// There is no float and no null: float literals are encoded as their
// shortest decimal text and absent fields are omitted.
type jsonValue interface {
	jsonValue()
}

type jsonString string

func (jsonString) jsonValue() {}

type jsonInt int64

func (jsonInt) jsonValue() {}

type jsonBool bool

func (jsonBool) jsonValue() {}

type jsonArray []jsonValue

func (jsonArray) jsonValue() {}

// jsonObject maps keys to values. Use sortedKeys for deterministic iteration.
type jsonObject map[string]jsonValue

func (jsonObject) jsonValue() {}

// sortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings uses UTF-8 byte order, which differs for astral characters.
func (obj jsonObject) sortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings by UTF-16 code units.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// setIf stores s under key unless s is empty.
func (obj jsonObject) setIf(key, s string) {
	if s != "" {
		obj[key] = jsonString(s)
	}
}

// stringsArray converts a string slice to a jsonArray.
func stringsArray(ss []string) jsonArray {
	arr := make(jsonArray, len(ss))
	for i, s := range ss {
		arr[i] = jsonString(s)
	}
	return arr
}
