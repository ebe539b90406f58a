package content

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrUnresolvedPlaceholder marks generated text that still carries a
// {placeholder} token. Such text must never be persisted.
var ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_]+)\}`)

func placeholderNames(tpl string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(tpl, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// HasPlaceholder reports whether s still contains a placeholder token.
func HasPlaceholder(s string) bool {
	return placeholderPattern.MatchString(s)
}

// fill substitutes every placeholder in tpl using resolve. Substituted values
// are not scanned again.
func fill(tpl string, resolve func(name string) (string, bool)) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(tpl, func(tok string) string {
		name := tok[1 : len(tok)-1]
		v, ok := resolve(name)
		if !ok {
			missing = append(missing, name)
			return tok
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %v in %q", ErrUnresolvedPlaceholder, missing, tpl)
	}
	if HasPlaceholder(out) {
		return "", fmt.Errorf("%w: in %q", ErrUnresolvedPlaceholder, out)
	}
	return out, nil
}
