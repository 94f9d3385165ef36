package preload

import (
	"fmt"
	"strings"
)

// LinkHeader renders descriptors as an HTTP Link header value, one preload
// link relation per descriptor, comma-joined.
func LinkHeader(descriptors []Descriptor) string {
	if len(descriptors) == 0 {
		return ""
	}
	parts := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		parts = append(parts, fmt.Sprintf("<%s>; rel=%q; as=%q", d.URL, d.Rel, d.As))
	}
	return strings.Join(parts, ", ")
}
