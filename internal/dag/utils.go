package dag

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// formatTraversal converts an hcl.Traversal to a human-readable string for logging.
func formatTraversal(t hcl.Traversal) string {
	var sb strings.Builder
	for i, part := range t {
		switch p := part.(type) {
		case hcl.TraverseRoot:
			sb.WriteString(p.Name)
		case hcl.TraverseAttr:
			// The first part of a traversal is TraverseRoot, so any attr
			// will have something before it.
			sb.WriteRune('.')
			sb.WriteString(p.Name)
		case hcl.TraverseIndex:
			sb.WriteRune('[')
			if p.Key.Type() == cty.String {
				sb.WriteString(fmt.Sprintf("%q", p.Key.AsString()))
			} else if p.Key.Type() == cty.Number {
				bf := p.Key.AsBigFloat()
				sb.WriteString(bf.Text('f', -1))
			} else {
				sb.WriteString("...")
			}
			sb.WriteRune(']')
		default:
			if i > 0 {
				sb.WriteRune('.')
			}
			sb.WriteString("?")
		}
	}
	return sb.String()
}

// depAddress represents a parsed `depends_on` entry.
// Index is -1 if not specified (shorthand).
type depAddress struct {
	Name  string
	Index int
}

// depAddrRegex is used to parse addresses like "name" or "name[index]".
var depAddrRegex = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9_-]*)(?:\[(\d+)\])?$`)

// parseDepAddress parses a raw dependency string into its name and optional index.
func parseDepAddress(addr string) (*depAddress, error) {
	matches := depAddrRegex.FindStringSubmatch(addr)
	if matches == nil {
		return nil, fmt.Errorf("invalid dependency address format: %q", addr)
	}

	name := matches[1]
	index := -1 // Default to -1 for shorthand reference
	if matches[2] != "" {
		var err error
		index, err = strconv.Atoi(matches[2])
		if err != nil {
			// Unreachable due to the regex \d+
			return nil, fmt.Errorf("internal error: failed to parse index from %q", addr)
		}
	}
	return &depAddress{Name: name, Index: index}, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
