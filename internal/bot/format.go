package bot

import (
	"fmt"
	"strings"

	"github.com/emojistats/emojistats/internal/store"
)

func plural(n int64) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// usageLines renders one "<emoji> used N times" line per entry.
func usageLines(usage []store.EmojiUsage) string {
	var b strings.Builder
	for _, u := range usage {
		fmt.Fprintf(&b, "%s used %d time%s\n", u.Emoji.Pattern(), u.Count, plural(u.Count))
	}
	return b.String()
}

// userLines renders one "<name> used N emoji" line per entry.
func userLines(users []store.UserUsage) string {
	var b strings.Builder
	for _, u := range users {
		name := u.Name
		if name == "" {
			name = fmt.Sprintf("<@%d>", uint64(u.ID))
		}
		fmt.Fprintf(&b, "%s used %d emoji\n", name, u.Uses)
	}
	return b.String()
}

// countedHeader titles a ranking field with its grand total, e.g.
// "Top Emoji (12 total uses)".
func countedHeader(title string, total int64) string {
	return fmt.Sprintf("%s (%d total use%s)", title, total, plural(total))
}
