package usecase

import "strings"

// Youth and reserve squad markers seen in team and league names. Matches
// between them behave differently enough that rules can opt out.
var youthTokens = []string{
	"u17", "u-17", "sub17", "sub-17", "sub 17",
	"u19", "u-19", "sub19", "sub-19", "sub 19",
	"u20", "u-20", "sub20", "sub-20", "sub 20",
	"u21", "u-21", "sub21", "sub-21", "sub 21",
	"u23", "u-23", "sub23", "sub-23", "sub 23",
	"youth", "junior", "reserve",
}

// IsYouthGame reports whether any of the given names marks a youth or
// reserve fixture.
func IsYouthGame(names ...string) bool {
	for _, name := range names {
		lowered := strings.ToLower(name)
		for _, token := range youthTokens {
			if strings.Contains(lowered, token) {
				return true
			}
		}
	}
	return false
}
