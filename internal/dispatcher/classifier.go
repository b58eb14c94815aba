package dispatcher

import (
	"strings"
)

// QueryKind selects which analyzer, if any, handles a query directly.
type QueryKind string

const (
	KindLand     QueryKind = "land"
	KindBusiness QueryKind = "business"
	KindGeneric  QueryKind = "generic"
)

// Classification is the outcome of routing a query.
type Classification struct {
	Kind         QueryKind
	BusinessType string
}

// Rule is one routing predicate. Rules are evaluated in order; the
// first match wins. Registering a new analyzer means adding a rule, not
// editing the dispatcher.
type Rule struct {
	Name  string
	Match func(query string) (Classification, bool)
}

// Classifier routes a query to an analyzer kind via keyword predicates.
type Classifier struct {
	rules []Rule
}

// businessTypes maps recognized business labels onto their trigger keywords.
var businessTypes = []struct {
	label    string
	keywords []string
}{
	{"tea stall", []string{"tea stall", "tea shop", "tea business"}},
	{"coffee shop", []string{"coffee shop", "cafe", "coffee business"}},
	{"restaurant", []string{"restaurant", "dining", "eatery", "food business"}},
	{"retail store", []string{"retail", "store", "shop", "boutique"}},
	{"grocery store", []string{"grocery", "supermarket", "food market"}},
	{"bakery", []string{"bakery", "pastry shop", "bread shop"}},
}

// generalBusinessTerms catch business intent without a recognized type.
var generalBusinessTerms = []string{"open", "start", "begin", "launch", "business", "shop", "store"}

// NewClassifier creates a classifier with the default rules, plus any
// extra rules evaluated before the defaults.
func NewClassifier(extra ...Rule) *Classifier {
	rules := append([]Rule{}, extra...)
	rules = append(rules,
		Rule{Name: "land-purchase", Match: matchLand},
		Rule{Name: "business-viability", Match: matchBusiness},
	)
	return &Classifier{rules: rules}
}

// Classify routes a query. Queries matching no rule are generic and go
// through the tool-calling loop.
func (c *Classifier) Classify(query string) Classification {
	for _, rule := range c.rules {
		if cls, ok := rule.Match(query); ok {
			return cls
		}
	}
	return Classification{Kind: KindGeneric}
}

func matchLand(query string) (Classification, bool) {
	q := strings.ToLower(query)
	if strings.Contains(q, "buy") && strings.Contains(q, "land") {
		return Classification{Kind: KindLand}, true
	}
	return Classification{}, false
}

func matchBusiness(query string) (Classification, bool) {
	q := strings.ToLower(query)

	for _, bt := range businessTypes {
		for _, keyword := range bt.keywords {
			if strings.Contains(q, keyword) {
				return Classification{Kind: KindBusiness, BusinessType: bt.label}, true
			}
		}
	}

	for _, term := range generalBusinessTerms {
		if strings.Contains(q, term) {
			return Classification{Kind: KindBusiness, BusinessType: "business"}, true
		}
	}

	return Classification{}, false
}
