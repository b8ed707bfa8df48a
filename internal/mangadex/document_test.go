package mangadex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument_Invalid(t *testing.T) {
	_, err := ParseDocument([]byte(`{"data": [`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedResponse))
	assert.True(t, errors.Is(err, ErrUpstreamFetch))
}

func TestParseDocument_Empty(t *testing.T) {
	_, err := ParseDocument([]byte("  \n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamFetch)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}

func TestNode_Kinds(t *testing.T) {
	root, err := ParseDocument([]byte(`{"s":"x","n":1.5,"b":true,"z":null,"a":[1,2],"o":{}}`))
	require.NoError(t, err)

	assert.Equal(t, KindObject, root.Kind())
	assert.Equal(t, KindString, root.Get("s").Kind())
	assert.Equal(t, KindNumber, root.Get("n").Kind())
	assert.Equal(t, KindBool, root.Get("b").Kind())
	assert.Equal(t, KindNull, root.Get("z").Kind())
	assert.Equal(t, KindArray, root.Get("a").Kind())
	assert.Equal(t, KindObject, root.Get("o").Kind())
	assert.Equal(t, KindMissing, root.Get("nope").Kind())
}

func TestNode_MissingPathsNeverPanic(t *testing.T) {
	root, err := ParseDocument([]byte(`{"data":"not an array"}`))
	require.NoError(t, err)

	assert.False(t, root.Path("data", "attributes", "title", "en").Exists())
	assert.Nil(t, root.Get("data").Items())
	assert.Nil(t, root.Path("x", "y").NonBlank())

	// Get on an array yields missing, not the element
	arr, err := ParseDocument([]byte(`[{"id":"a"}]`))
	require.NoError(t, err)
	assert.False(t, arr.Get("id").Exists())
}

func TestNode_LiteralKeys(t *testing.T) {
	root, err := ParseDocument([]byte(`{"10.5":{"chapter":"10.5"},"ja-ro":"Kimetsu"}`))
	require.NoError(t, err)

	v, ok := root.Path("10.5", "chapter").Text()
	require.True(t, ok)
	assert.Equal(t, "10.5", v)

	v, ok = root.Get("ja-ro").Text()
	require.True(t, ok)
	assert.Equal(t, "Kimetsu", v)
}

func TestNode_EachKeepsDocumentOrder(t *testing.T) {
	root, err := ParseDocument([]byte(`{"b":1,"a":2,"c":3}`))
	require.NoError(t, err)

	var keys []string
	root.Each(func(k string, _ Node) bool {
		keys = append(keys, k)
		return true
	})
	assert.Equal(t, []string{"b", "a", "c"}, keys)
}

func TestNode_TextAndNonBlank(t *testing.T) {
	root, err := ParseDocument([]byte(`{"blank":"   ","num":12,"null":null,"obj":{"a":1},"s":"ok"}`))
	require.NoError(t, err)

	assert.Nil(t, root.Get("blank").NonBlank())
	assert.Nil(t, root.Get("null").NonBlank())
	assert.Nil(t, root.Get("obj").NonBlank())
	assert.Nil(t, root.Get("missing").NonBlank())

	require.NotNil(t, root.Get("num").NonBlank())
	assert.Equal(t, "12", *root.Get("num").NonBlank())
	assert.Equal(t, "ok", *root.Get("s").NonBlank())
}
