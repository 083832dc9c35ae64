package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRObjectSortedKeysRFC8785Order(t *testing.T) {
	obj := IRObject{
		"\uE000":     IRInt(1),
		"\U00010000": IRInt(2),
		"b":          IRInt(3),
		"a":          IRInt(4),
	}

	assert.Equal(t, []string{"a", "b", "\U00010000", "\uE000"}, obj.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	assert.Equal(t, 0, compareKeysRFC8785("abc", "abc"))
	assert.Equal(t, -1, compareKeysRFC8785("ab", "abc"))
	assert.Equal(t, 1, compareKeysRFC8785("b", "abc"))
	assert.Equal(t, -1, compareKeysRFC8785("\U00010000", "\uE000"))
}

func TestIRObjectAccessors(t *testing.T) {
	obj := IRObject{
		"name":  IRString("amine"),
		"count": IRInt(3),
		"ok":    IRBool(true),
		"sub":   IRObject{"x": IRInt(1)},
		"list":  IRArray{IRInt(1), IRInt(2)},
	}

	s, err := obj.String("name")
	require.NoError(t, err)
	assert.Equal(t, "amine", s)

	n, err := obj.Int("count")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	b, err := obj.Bool("ok")
	require.NoError(t, err)
	assert.True(t, b)

	sub, err := obj.Object("sub")
	require.NoError(t, err)
	assert.Equal(t, IRInt(1), sub["x"])

	list, err := obj.Array("list")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = obj.String("missing")
	assert.ErrorContains(t, err, "missing")
	_, err = obj.Int("name")
	assert.ErrorContains(t, err, "expected int")
	_, err = obj.Bool("count")
	assert.ErrorContains(t, err, "expected bool")
}

func TestIntsRoundTrip(t *testing.T) {
	arr := IntArray([]int{4, 0, 17})
	assert.Equal(t, IRArray{IRInt(4), IRInt(0), IRInt(17)}, arr)

	back, err := Ints(arr)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 0, 17}, back)

	_, err = Ints(IRString("nope"))
	assert.Error(t, err)
	_, err = Ints(IRArray{IRString("x")})
	assert.Error(t, err)
}

func TestUnmarshalRejectsFloats(t *testing.T) {
	for _, input := range []string{`3.14`, `{"mw": 180.16}`, `[1, 2.5]`, `1e10`} {
		_, err := UnmarshalIRValue([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestUnmarshalRejectsNull(t *testing.T) {
	_, err := UnmarshalIRValue([]byte(`{"a": null}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null")
}

func TestIRObjectJSONRoundTrip(t *testing.T) {
	obj := IRObject{
		"name":   IRString("benzylamine"),
		"heavy":  IRInt(8),
		"chiral": IRBool(false),
		"tags":   IRArray{IRString("amine"), IRString("primary")},
		"none":   IRNull{},
	}

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"chiral":false,"heavy":8,"name":"benzylamine","none":null,"tags":["amine","primary"]}`, string(data))

	var back IRObject
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, obj, back)
}

func TestIRObjectUnmarshalLargeInt(t *testing.T) {
	var obj IRObject
	require.NoError(t, json.Unmarshal([]byte(`{"n": 9007199254740993}`), &obj))
	assert.Equal(t, IRInt(9007199254740993), obj["n"])
}

func TestFromAny(t *testing.T) {
	v, err := FromAny(map[string]any{
		"a": 1,
		"b": []any{"x", true, int64(2)},
		"c": uint64(7),
	})
	require.NoError(t, err)
	assert.Equal(t, IRObject{
		"a": IRInt(1),
		"b": IRArray{IRString("x"), IRBool(true), IRInt(2)},
		"c": IRInt(7),
	}, v)

	_, err = FromAny(map[string]any{"mw": 1.5})
	assert.ErrorContains(t, err, "float")

	_, err = FromAny(uint64(1 << 63))
	assert.ErrorContains(t, err, "range")
}

func TestToAny(t *testing.T) {
	got := ToAny(IRObject{
		"s": IRString("x"),
		"n": IRInt(2),
		"l": IRArray{IRBool(true)},
	})
	assert.Equal(t, map[string]any{
		"s": "x",
		"n": int64(2),
		"l": []any{true},
	}, got)
	assert.Nil(t, ToAny(IRNull{}))
}
