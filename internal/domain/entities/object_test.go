package entities

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKeepsKeyOrder(t *testing.T) {
	obj := NewObject()
	require.NoError(t, json.Unmarshal([]byte(`{"z":1,"a":2,"m":{"y":true,"b":null}}`), obj))

	assert.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	nested, ok := obj.Get("m")
	require.True(t, ok)
	require.IsType(t, &Object{}, nested)
	assert.Equal(t, []string{"y", "b"}, nested.(*Object).Keys())

	out, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":2,"m":{"y":true,"b":null}}`, string(out))
}

func TestObjectPreservesNumberLiterals(t *testing.T) {
	input := `{"int":12345678901234567890,"float":1.50,"exp":1e5,"neg":-0}`

	obj := NewObject()
	require.NoError(t, obj.UnmarshalJSON([]byte(input)))

	v, _ := obj.Get("int")
	assert.Equal(t, json.Number("12345678901234567890"), v)

	out, err := obj.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestObjectLineSeparatorsAreNotEscaped(t *testing.T) {
	input := "{\"name\":\"a\u2028b\u2029c\",\"a\u2028key\":1}"

	obj := NewObject()
	require.NoError(t, obj.UnmarshalJSON([]byte(input)))

	out, err := obj.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
	assert.NotContains(t, string(out), `\u2028`)
}

func TestObjectEscapedBackslashBeforeU2028IsKept(t *testing.T) {
	// the value is a backslash followed by the letters u2028
	input := `{"path":"C:\\u2028\u2028"}`

	obj := NewObject()
	require.NoError(t, obj.UnmarshalJSON([]byte(input)))

	value, ok := obj.Get("path")
	require.True(t, ok)
	assert.Equal(t, "C:\\u2028\u2028", value)

	out, err := obj.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "{\"path\":\"C:\\\\u2028\u2028\"}", string(out))
}

func TestObjectTextIsNotEscaped(t *testing.T) {
	input := `{"title":"Café <Live> & Ёлка","artist":"坂本龍一"}`

	obj := NewObject()
	require.NoError(t, obj.UnmarshalJSON([]byte(input)))

	out, err := obj.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, input, string(out))
}

func TestObjectDecodesEscapedUnicode(t *testing.T) {
	obj := NewObject()
	require.NoError(t, obj.UnmarshalJSON([]byte(`{"title":"Caf\u00e9"}`)))

	out, err := obj.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Café"}`, string(out))
}

func TestObjectDuplicateKeyKeepsFirstPosition(t *testing.T) {
	obj := NewObject()
	require.NoError(t, obj.UnmarshalJSON([]byte(`{"a":1,"b":2,"a":3}`)))

	assert.Equal(t, []string{"a", "b"}, obj.Keys())
	v, _ := obj.Get("a")
	assert.Equal(t, json.Number("3"), v)
}

func TestObjectEmptyContainers(t *testing.T) {
	obj := NewObject()
	require.NoError(t, obj.UnmarshalJSON([]byte(`{"list":[],"obj":{}}`)))

	out, err := obj.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"list":[],"obj":{}}`, string(out))
}

func TestObjectRejectsNonObject(t *testing.T) {
	for _, input := range []string{`[]`, `"tracks"`, `42`, `null`} {
		t.Run(input, func(t *testing.T) {
			err := NewObject().UnmarshalJSON([]byte(input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDocumentNotObject))
		})
	}
}

func TestObjectSetDefault(t *testing.T) {
	var obj Object

	assert.True(t, obj.SetDefault("likes", DefaultCounter))
	assert.False(t, obj.SetDefault("likes", json.Number("9")))

	v, ok := obj.Get("likes")
	require.True(t, ok)
	assert.Equal(t, DefaultCounter, v)
	assert.Equal(t, 1, obj.Len())
}

func TestObjectSetReplacesInPlace(t *testing.T) {
	obj := NewObject()
	obj.Set("a", "1")
	obj.Set("b", "2")
	obj.Set("a", "3")

	members := obj.Members()
	require.Len(t, members, 2)
	assert.Equal(t, Member{Key: "a", Value: "3"}, members[0])
	assert.Equal(t, Member{Key: "b", Value: "2"}, members[1])
}
