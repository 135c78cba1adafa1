package format

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrBadSize indicates a size or address string could not be parsed.
var ErrBadSize = errors.New("format: bad size")

var sizeSuffixes = []struct {
	suffix string
	shift  uint
}{
	{"KiB", 10}, {"MiB", 20}, {"GiB", 30},
	{"KB", 10}, {"MB", 20}, {"GB", 30},
	{"K", 10}, {"M", 20}, {"G", 30},
}

// ParseSize parses a byte count or address such as "4096", "0x2000", "16K" or "4MiB".
// Suffixes are binary multiples.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.Wrap(ErrBadSize, "empty string")
	}

	shift := uint(0)
	upper := strings.ToUpper(s)
	for _, sfx := range sizeSuffixes {
		if strings.HasSuffix(upper, strings.ToUpper(sfx.suffix)) {
			s = s[:len(s)-len(sfx.suffix)]
			shift = sfx.shift
			break
		}
	}

	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrBadSize, "%q", s)
	}
	if shift > 0 && v > (^uint64(0))>>shift {
		return 0, errors.Wrapf(ErrBadSize, "%q overflows", s)
	}
	return v << shift, nil
}

// FormatSize renders n with the largest binary suffix that divides it evenly.
func FormatSize(n uint64) string {
	switch {
	case n != 0 && n%(1<<30) == 0:
		return strconv.FormatUint(n>>30, 10) + "GiB"
	case n != 0 && n%(1<<20) == 0:
		return strconv.FormatUint(n>>20, 10) + "MiB"
	case n != 0 && n%(1<<10) == 0:
		return strconv.FormatUint(n>>10, 10) + "KiB"
	default:
		return strconv.FormatUint(n, 10) + "B"
	}
}
