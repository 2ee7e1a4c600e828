// Package ticket holds the ticket model shared between the Jira client and
// the TUI, plus the pure string transforms used for branch naming.
package ticket

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ticket is a remote issue as the rest of the program sees it.
type Ticket struct {
	Key         string
	Summary     string
	Status      string
	Type        string
	Description string
	Assignee    string
	Sprint      string
}

// Transition is a legal status change for a ticket.
type Transition struct {
	ID string
	// Name is the transition's label (e.g. "Start Progress").
	Name string
	// ToStatus is the status the ticket lands in after the transition.
	ToStatus string
}

// keyPattern matches a ticket key at the start of a string:
// an uppercase project token, a dash, and a number.
var keyPattern = regexp.MustCompile(`^([A-Z][A-Z0-9]*-\d+)`)

// ExtractKey returns the ticket key prefixing branch, or "" if the branch
// name does not start with one.
func ExtractKey(branch string) string {
	return keyPattern.FindString(branch)
}

// KeyFromBranch finds the ticket key embedded in a branch name. It checks
// the branch itself first, then each slash-separated segment, so both
// "PROJ-42/fix-login" and "feature/PROJ-42-fix-login" resolve.
func KeyFromBranch(branch string) string {
	if key := ExtractKey(branch); key != "" {
		return key
	}
	for _, seg := range strings.Split(branch, "/") {
		if key := ExtractKey(seg); key != "" {
			return key
		}
	}
	return ""
}

// branchPrefixes are conventional branch name prefixes stripped when
// deriving a ticket title from a branch name.
var branchPrefixes = []string{"feature/", "bugfix/", "fix/", "hotfix/", "release/", "chore/"}

// Slugify lowercases s and reduces it to [a-z0-9-], collapsing separator
// runs. The result never starts or ends with '-' and is at most max bytes;
// truncation happens at a word boundary when possible.
func Slugify(s string, max int) string {
	var b strings.Builder
	lastDash := true // suppress leading dashes
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")

	if max > 0 && len(slug) > max {
		cut := slug[:max]
		if i := strings.LastIndexByte(cut, '-'); i > 0 {
			cut = cut[:i]
		}
		slug = strings.TrimRight(cut, "-")
	}
	return slug
}

// BranchName builds "KEY/slug-of-summary". max bounds the slug portion.
func BranchName(key, summary string, max int) string {
	slug := Slugify(summary, max)
	if slug == "" {
		return key
	}
	return key + "/" + slug
}

// SuggestTitle derives a human title from a branch name: it strips one
// conventional prefix (feature/, fix/, ...) and a leading ticket-id token,
// then title-cases the remaining words.
func SuggestTitle(branch string) string {
	name := branch
	for _, p := range branchPrefixes {
		if strings.HasPrefix(name, p) {
			name = name[len(p):]
			break
		}
	}
	if key := ExtractKey(name); key != "" {
		name = strings.TrimLeft(name[len(key):], "-_/ ")
	}

	words := strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == '/' || r == ' '
	})
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// splitKey breaks "PROJ-42" into its project token and numeric suffix.
// ok is false when key is not in ticket-key form.
func splitKey(key string) (project string, num int, ok bool) {
	i := strings.LastIndexByte(key, '-')
	if i <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil {
		return "", 0, false
	}
	return key[:i], n, true
}

// SortKeys orders ticket keys by project ascending and, within a project,
// by numeric suffix descending (newest tickets first). Malformed keys sort
// after well-formed ones, in lexical order.
func SortKeys(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		pi, ni, oki := splitKey(keys[i])
		pj, nj, okj := splitKey(keys[j])
		if oki != okj {
			return oki
		}
		if !oki {
			return keys[i] < keys[j]
		}
		if pi != pj {
			return pi < pj
		}
		return ni > nj
	})
}

// SortTickets orders tickets by their keys using SortKeys ordering.
func SortTickets(ts []Ticket) {
	sort.SliceStable(ts, func(i, j int) bool {
		pi, ni, oki := splitKey(ts[i].Key)
		pj, nj, okj := splitKey(ts[j].Key)
		if oki != okj {
			return oki
		}
		if !oki {
			return ts[i].Key < ts[j].Key
		}
		if pi != pj {
			return pi < pj
		}
		return ni > nj
	})
}
