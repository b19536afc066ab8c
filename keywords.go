package reconcile

import (
	"strings"
	"unicode"
)

// stopwords is the fixed Portuguese banking stopword set. Kept as a set
// literal rather than a loaded resource, matching the style of small
// inline lookup tables used for other fixed vocabularies in this package.
var stopwords = map[string]bool{
	"PAGAMENTO":     true,
	"TRANSFERENCIA": true,
	"DOC":           true,
	"TED":           true,
	"PIX":           true,
	"BOLETO":        true,
	"COBRANCA":      true,
	"RECEBIMENTO":   true,
	"DEPOSITO":      true,
	"SAQUE":         true,
	"TARIFA":        true,
	"TAXA":          true,
	"LIQUIDACAO":    true,
	"REF":           true,
	"REFERENTE":     true,
	"DE":            true,
	"DA":            true,
	"DO":            true,
	"PARA":          true,
	"CLIENTE":       true,
	"FAVORECIDO":    true,
	"VALOR":         true,
	"CONTA":         true,
	"BANCO":         true,
	"AGENCIA":       true,
}

// ExtractKeywords produces a deterministic, stopword-filtered, deduplicated
// keyword list for desc, already upper-cased/ASCII-folded by the caller
// (Normalizer runs desc_norm before this is called), capped at maxKeywords.
func ExtractKeywords(descNorm string, maxKeywords int) []string {
	fields := strings.Fields(descNorm)
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, maxKeywords)
	for _, tok := range fields {
		if len(out) >= maxKeywords {
			break
		}
		if len(tok) <= 2 {
			continue
		}
		if isNumericToken(tok) {
			continue
		}
		if stopwords[tok] {
			continue
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

func isNumericToken(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Signature is the first three kept keywords joined by "|".
// Empty if the keyword list is empty.
func Signature(keywords []string) string {
	n := len(keywords)
	if n == 0 {
		return ""
	}
	if n > 3 {
		n = 3
	}
	return strings.Join(keywords[:n], "|")
}

// KeywordIntersectionSize counts the number of keywords shared between a
// and b, used by the description stages' "keyword intersection >= 2" gate.
func KeywordIntersectionSize(a, b []string) int {
	set := make(map[string]bool, len(a))
	for _, k := range a {
		set[k] = true
	}
	n := 0
	counted := make(map[string]bool, len(b))
	for _, k := range b {
		if set[k] && !counted[k] {
			counted[k] = true
			n++
		}
	}
	return n
}
