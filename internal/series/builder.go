// Package series builds candidate recurring-charge series from raw
// transactions and computes stability profiles over them.
package series

import (
	"regexp"
	"sort"
	"strings"

	"github.com/subhound/subhound/internal/model"
)

// Normalization strips the processor noise that makes two charges from the
// same merchant look distinct: "*" reference segments, trailing digit runs,
// and repeated whitespace.
var (
	refSegmentRe    = regexp.MustCompile(`\*\S*$`)
	trailingDigitRe = regexp.MustCompile(`[\s#-]*\d{3,}$`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// NormalizeMerchant folds a raw transaction description into a merchant
// key. "NETFLIX.COM*1A2B3" and "NETFLIX.COM*4C5D6" map to the same key;
// an unparsable description yields its cleaned raw form.
func NormalizeMerchant(description string) string {
	key := strings.ToUpper(strings.TrimSpace(description))
	key = refSegmentRe.ReplaceAllString(key, "")
	key = trailingDigitRe.ReplaceAllString(key, "")
	key = whitespaceRe.ReplaceAllString(key, " ")
	key = strings.TrimSpace(key)
	if key == "" {
		// Degenerate descriptions still get a key of their own.
		key = strings.ToUpper(strings.TrimSpace(description))
	}
	return key
}

// Build groups transactions into candidate series by (normalized merchant
// key, account), each sorted ascending by date. It is a pure transform:
// archived transactions are expected to be filtered by the caller's query.
func Build(transactions []model.Transaction) []model.CandidateSeries {
	type groupKey struct {
		merchant string
		account  string
	}

	groups := make(map[groupKey][]model.Transaction)
	for _, txn := range transactions {
		key := txn.MerchantKey
		if key == "" {
			key = NormalizeMerchant(txn.Description)
		}
		txn.MerchantKey = key
		gk := groupKey{merchant: key, account: txn.AccountID}
		groups[gk] = append(groups[gk], txn)
	}

	result := make([]model.CandidateSeries, 0, len(groups))
	for gk, txns := range groups {
		sort.Slice(txns, func(i, j int) bool {
			return txns[i].Date.Before(txns[j].Date)
		})
		result = append(result, model.CandidateSeries{
			MerchantKey:  gk.merchant,
			AccountID:    gk.account,
			Transactions: txns,
		})
	}

	// Deterministic ordering for downstream processing and tests.
	sort.Slice(result, func(i, j int) bool {
		if result[i].MerchantKey != result[j].MerchantKey {
			return result[i].MerchantKey < result[j].MerchantKey
		}
		return result[i].AccountID < result[j].AccountID
	})

	return result
}
