package lexer

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_IdentifiersRoundTrip checks that any identifier-shaped word
// lexes to a single token carrying the same text.
func TestProperty_IdentifiersRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("identifier lexes to itself", prop.ForAll(
		func(word string) bool {
			l := New(word)
			tok := l.NextToken()
			if tok.Literal != word {
				return false
			}
			if _, isKeyword := keywords[word]; !isKeyword && tok.Type != TOKEN_IDENT {
				return false
			}
			return l.NextToken().Type == TOKEN_EOF
		},
		gen.Identifier(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
