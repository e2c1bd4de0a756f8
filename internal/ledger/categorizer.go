package ledger

import "strings"

// Classifier infers a category from an account name. An empty result means no guess.
type Classifier interface {
	Classify(account string) string
}

// KeywordRule assigns Category when the lower-cased account contains any keyword.
type KeywordRule struct {
	Category string
	Keywords []string
}

// KeywordClassifier applies its rules in order; the first match wins.
type KeywordClassifier struct {
	Rules []KeywordRule
}

func (c KeywordClassifier) Classify(account string) string {
	a := strings.ToLower(account)
	for _, rule := range c.Rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(a, kw) {
				return rule.Category
			}
		}
	}
	return ""
}

// DefaultClassifier recognizes utilities, credit cards and streaming subscriptions.
var DefaultClassifier = KeywordClassifier{Rules: []KeywordRule{
	{Category: "Conta básica", Keywords: []string{"água", "agua", "sabesp", "saae", "luz", "energia", "enel", "cpfl", "gás", "gas"}},
	{Category: "Cartão de crédito", Keywords: []string{"cartão", "cartao", "visa", "master", "nubank", "c6", "inter"}},
	{Category: "Assinatura", Keywords: []string{"netflix", "spotify", "prime", "disney"}},
}}
