package matching

import (
	"fmt"
	"strings"

	"github.com/dvloznov/manual-tx-bot/internal/domain"
)

// DefaultOptionLimit caps how many accounts are listed back to the user.
const DefaultOptionLimit = 10

// ResolveCategory returns the category whose normalized name equals the
// normalized input, else the first one that contains it.
func ResolveCategory(rawName string, categories []domain.Category) (domain.Category, bool) {
	needle := Normalize(rawName)
	if needle == "" {
		return domain.Category{}, false
	}

	var (
		contains domain.Category
		found    bool
	)
	for _, c := range categories {
		name := Normalize(c.Name)
		if name == needle {
			return c, true
		}
		if !found && strings.Contains(name, needle) {
			contains, found = c, true
		}
	}
	return contains, found
}

// FormatAccountOptions renders up to limit accounts as "Label (id N)",
// followed by "...and K more" when the list is longer.
func FormatAccountOptions(accounts []domain.Account, limit int) string {
	if limit <= 0 {
		limit = DefaultOptionLimit
	}

	options := make([]string, 0, limit+1)
	for i, acct := range accounts {
		if i == limit {
			break
		}
		options = append(options, fmt.Sprintf("%s (id %d)", acct.Label, acct.ID))
	}
	if remaining := len(accounts) - limit; remaining > 0 {
		options = append(options, fmt.Sprintf("...and %d more", remaining))
	}
	return strings.Join(options, ", ")
}
