package cache

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-household-store/invalidation"
)

// Key addresses a cached view of one entity family. Tokens are the
// generations that were live when the view was computed: the family's own
// token first, followed by any family the view also depends on. Once any of
// them is superseded the key is never produced again and the entry is left to
// expire.
type Key struct {
	Family string
	Tokens []invalidation.Token
	Suffix string
}

// NewKey binds suffix to the given tokens of family.
func NewKey(family string, suffix string, tokens ...invalidation.Token) Key {
	return Key{Family: family, Tokens: tokens, Suffix: suffix}
}

// String renders the key, e.g. "Document::Document@3,Member@7::ByHousehold::<id>".
func (k Key) String() string {
	gens := make([]string, len(k.Tokens))
	for i, tok := range k.Tokens {
		gens[i] = tok.Family() + "@" + strconv.FormatUint(tok.Generation(), 10)
	}

	parts := []string{k.Family, strings.Join(gens, ",")}
	if k.Suffix != "" {
		parts = append(parts, k.Suffix)
	}
	return strings.Join(parts, KeySeparator)
}
