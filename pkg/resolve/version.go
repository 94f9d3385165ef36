package resolve

import (
	"github.com/Masterminds/semver/v3"
)

// IsExactVersion reports whether spec names a single concrete version rather
// than a range. Strict parsing rejects partials ("1.2"), ranges ("^1.2.3",
// ">=2"), tags ("latest"), and a leading "v".
func IsExactVersion(spec string) bool {
	if spec == "" {
		return false
	}
	_, err := semver.StrictNewVersion(spec)
	return err == nil
}
