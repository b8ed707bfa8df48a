package mangadex

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind is the JSON type of a Node, with KindMissing for absent values.
type Kind int

const (
	KindMissing Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Node is a read-only view over one position of a parsed provider document.
// Navigating through absent keys or wrong-shaped nodes never fails; it
// yields the missing node instead.
type Node struct {
	r gjson.Result
}

// ParseDocument parses a raw response body. Only a body that is not valid
// JSON is an error; shape problems surface later as missing nodes.
func ParseDocument(body []byte) (Node, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return Node{}, fmt.Errorf("parse document: empty body: %w", ErrUpstreamFetch)
	}
	if !gjson.ValidBytes(body) {
		return Node{}, fmt.Errorf("parse document: %w: %w", ErrUpstreamFetch, ErrMalformedResponse)
	}
	return Node{r: gjson.ParseBytes(body)}, nil
}

func (n Node) Kind() Kind {
	if !n.r.Exists() {
		return KindMissing
	}
	switch n.r.Type {
	case gjson.Null:
		return KindNull
	case gjson.True, gjson.False:
		return KindBool
	case gjson.Number:
		return KindNumber
	case gjson.String:
		return KindString
	}
	if n.r.IsArray() {
		return KindArray
	}
	return KindObject
}

func (n Node) Exists() bool   { return n.Kind() != KindMissing }
func (n Node) IsArray() bool  { return n.Kind() == KindArray }
func (n Node) IsObject() bool { return n.Kind() == KindObject }

// Get returns the value of key on an object node. Keys are matched
// literally, so chapter keys like "10.5" need no escaping.
func (n Node) Get(key string) Node {
	if !n.IsObject() {
		return Node{}
	}
	var out Node
	n.r.ForEach(func(k, v gjson.Result) bool {
		if k.Str == key {
			out = Node{r: v}
			return false
		}
		return true
	})
	return out
}

// Path walks nested object keys.
func (n Node) Path(keys ...string) Node {
	cur := n
	for _, k := range keys {
		cur = cur.Get(k)
	}
	return cur
}

// Items returns the elements of an array node, or nil for anything else.
func (n Node) Items() []Node {
	if !n.IsArray() {
		return nil
	}
	arr := n.r.Array()
	out := make([]Node, len(arr))
	for i, r := range arr {
		out[i] = Node{r: r}
	}
	return out
}

// Each visits object fields in document order until fn returns false.
func (n Node) Each(fn func(key string, value Node) bool) {
	if !n.IsObject() {
		return
	}
	n.r.ForEach(func(k, v gjson.Result) bool {
		return fn(k.Str, Node{r: v})
	})
}

// Text returns the textual form of a scalar leaf. Missing, null and
// container nodes have no text.
func (n Node) Text() (string, bool) {
	switch n.Kind() {
	case KindString:
		return n.r.Str, true
	case KindNumber, KindBool:
		return n.r.Raw, true
	}
	return "", false
}

// NonBlank returns the leaf text, or nil when it is absent or whitespace only.
func (n Node) NonBlank() *string {
	s, ok := n.Text()
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
