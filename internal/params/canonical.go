package params

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/zclconf/go-cty/cty"
)

// Canonical returns the deterministic JSON encoding of the resolved tree.
// The encoding is a compatibility contract: store digests are computed over
// these bytes, so any change here moves every memoized directory.
//
// Rules: one JSON object per node, leaf values and nested objects sharing a
// single key namespace sorted lexicographically; integers rendered without
// exponent or fraction; other numbers as their shortest round-tripping
// decimal; unset optional parameters omitted. A leaf declared with
// HashContents is replaced by {"sha256":"<hex>"} over the referenced file's
// bytes, so renaming an input file does not change the key but editing it
// does.
func (n *Node) Canonical() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.appendCanonical(&buf, ""); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) appendCanonical(buf *bytes.Buffer, prefix string) error {
	keys := make([]string, 0, len(n.values)+len(n.children))
	for name := range n.values {
		keys = append(keys, name)
	}
	for _, child := range n.children {
		keys = append(keys, child.class.Name)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, key := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := appendJSONString(buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')

		if child, ok := n.childIdx[key]; ok {
			if err := child.appendCanonical(buf, joinPath(prefix, key)); err != nil {
				return err
			}
			continue
		}

		v := n.values[key]
		path := joinPath(prefix, key)
		if spec, ok := n.class.Spec(key); ok && spec.HashContents && !v.IsNull() && v.Type() == cty.String {
			sum, err := hashFileContents(v.AsString())
			if err != nil {
				return fmt.Errorf("parameter %q: %w", path, err)
			}
			buf.WriteString(`{"sha256":`)
			if err := appendJSONString(buf, sum); err != nil {
				return err
			}
			buf.WriteByte('}')
			continue
		}

		if err := appendCanonicalValue(buf, v, path); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func appendCanonicalValue(buf *bytes.Buffer, v cty.Value, path string) error {
	if v.IsNull() {
		buf.WriteString("null")
		return nil
	}
	t := v.Type()
	switch {
	case t == cty.Bool:
		if v.True() {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case t == cty.Number:
		buf.WriteString(formatNumber(v))
	case t == cty.String:
		return appendJSONString(buf, v.AsString())
	case t.IsListType() || t.IsSetType() || t.IsTupleType():
		buf.WriteByte('[')
		first := true
		for it := v.ElementIterator(); it.Next(); {
			if !first {
				buf.WriteByte(',')
			}
			first = false
			_, ev := it.Element()
			if err := appendCanonicalValue(buf, ev, path); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case t.IsMapType() || t.IsObjectType():
		elems := make(map[string]cty.Value)
		keys := make([]string, 0)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			elems[k.AsString()] = ev
			keys = append(keys, k.AsString())
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := appendJSONString(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := appendCanonicalValue(buf, elems[k], path); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("parameter %q: type %s has no canonical encoding", path, t.FriendlyName())
	}
	return nil
}

// formatNumber renders a cty number deterministically: integers plainly,
// everything else as the shortest representation that round-trips.
func formatNumber(v cty.Value) string {
	bf := v.AsBigFloat()
	if bf.IsInt() {
		return bf.Text('f', 0)
	}
	return bf.Text('g', -1)
}

func appendJSONString(buf *bytes.Buffer, s string) error {
	enc, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(enc)
	return nil
}

// hashFileContents returns the lowercase hex SHA-256 of a file's bytes.
func hashFileContents(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hashing input file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing input file %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
