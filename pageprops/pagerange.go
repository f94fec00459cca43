package pageprops

import (
	"sort"
	"strconv"
	"strings"

	"github.com/wudi/pdfmark/failure"
)

// ParseRange parses a page selection such as "1-3, 5, 8-" against a
// document of n pages. Open ranges run to the last page. The result is
// sorted and free of duplicates.
func ParseRange(text string, n int) ([]int, error) {
	const op = "pageprops.range"
	seen := make(map[int]bool)
	bad := func(format string, args ...interface{}) ([]int, error) {
		return nil, failure.Errorf(failure.InvalidInput, op, format, args...)
	}
	if strings.TrimSpace(text) == "" {
		return bad("empty page range")
	}
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return bad("empty element in %q", text)
		}
		lo, hi := part, part
		if a, b, ok := strings.Cut(part, "-"); ok {
			lo, hi = strings.TrimSpace(a), strings.TrimSpace(b)
			if lo == "" {
				lo = "1"
			}
			if hi == "" {
				hi = strconv.Itoa(n)
			}
		}
		from, err := strconv.Atoi(lo)
		if err != nil {
			return bad("invalid page %q", lo)
		}
		to, err := strconv.Atoi(hi)
		if err != nil {
			return bad("invalid page %q", hi)
		}
		if from < 1 || to > n || from > to {
			return bad("range %q outside 1..%d", part, n)
		}
		for p := from; p <= to; p++ {
			seen[p] = true
		}
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out, nil
}
