// Package breakpoint maps viewport widths to screen-size variants and builds
// the CSS media queries that switch between them.
package breakpoint

import (
	"fmt"
	"strings"

	"github.com/message-inserter/message-inserter/internal/store"
)

// MediaQuery returns the media condition for the given bounds. Both bounds
// yield "(min-width: Npx) and (max-width: Mpx)"; a single bound yields its
// bare clause; no bounds yields "".
func MediaQuery(minWidth, maxWidth *int) string {
	var clauses []string
	if minWidth != nil {
		clauses = append(clauses, fmt.Sprintf("(min-width: %dpx)", *minWidth))
	}
	if maxWidth != nil {
		clauses = append(clauses, fmt.Sprintf("(max-width: %dpx)", *maxWidth))
	}
	return strings.Join(clauses, " and ")
}

// Contains reports whether width falls inside the variant's inclusive bounds.
func Contains(size store.ScreenSize, width int) bool {
	if size.MinWidth != nil && width < *size.MinWidth {
		return false
	}
	if size.MaxWidth != nil && width > *size.MaxWidth {
		return false
	}
	return true
}

// Select returns the index of the first variant containing width.
func Select(sizes []store.ScreenSize, width int) (int, bool) {
	for i, size := range sizes {
		if Contains(size, width) {
			return i, true
		}
	}
	return 0, false
}

// ClassName is the CSS class carried by variant i of a message.
func ClassName(messageID int64, i int) string {
	return fmt.Sprintf("mi-%d-%d", messageID, i)
}

// Stylesheet hides every variant of the message and reveals each one inside
// its media query. Unbounded variants are always visible.
func Stylesheet(messageID int64, sizes []store.ScreenSize) string {
	var b strings.Builder
	for i, size := range sizes {
		class := ClassName(messageID, i)
		query := MediaQuery(size.MinWidth, size.MaxWidth)
		if query == "" {
			fmt.Fprintf(&b, ".%s{display:block}\n", class)
			continue
		}
		fmt.Fprintf(&b, ".%s{display:none}\n", class)
		fmt.Fprintf(&b, "@media %s{.%s{display:block}}\n", query, class)
	}
	return b.String()
}
