package memo

import (
	"fmt"
	"sort"
	"strings"
)

// Signature is the deterministic encoding of one call's arguments, used as
// the lookup key alongside the function name.
//
// Each positional value renders as "<type>:<literal>" using %T and %#v,
// joined with ", " inside parentheses. Keyword arguments render as
// "key=<type>:<literal>" sorted by key inside braces. The type prefix keeps
// values like 1 and "1" from colliding, the key sort makes keyword order
// irrelevant, and fmt's sorted map printing keeps map-valued arguments
// stable. A positional call and a keyword call never collide because they
// land in different fields.
type Signature struct {
	Args   string
	Kwargs string
}

// NewSignature encodes positional and keyword arguments.
func NewSignature(pos []any, kw map[string]any) Signature {
	return Signature{
		Args:   encodePositional(pos),
		Kwargs: encodeKeyword(kw),
	}
}

// String returns the combined encoding, mostly for logging.
func (s Signature) String() string {
	return s.Args + s.Kwargs
}

func encodePositional(pos []any) string {
	parts := make([]string, len(pos))
	for i, v := range pos {
		parts[i] = encodeValue(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func encodeKeyword(kw map[string]any) string {
	keys := make([]string, 0, len(kw))
	for k := range kw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + encodeValue(kw[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func encodeValue(v any) string {
	return fmt.Sprintf("%T:%#v", v, v)
}
