package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/subhound/subhound/internal/model"
)

// duplicateGroup is a set of active subscriptions sharing a category.
type duplicateGroup struct {
	category string
	members  []*model.Subscription
}

// detectDuplicates groups active subscriptions by category and flags sets
// that may duplicate each other. The AI-assigned category from the
// classification verdict takes precedence; the rule-based hint is the
// always-available fallback. Flagged groups are returned keyed by alert ID
// so the post-detection enrichment pass can look them up.
func (e *DetectionEngine) detectDuplicates(ctx context.Context, outcomes map[string]*classificationOutcome) (int, []model.Alert, map[string]*duplicateGroup, error) {
	groups := make(map[string]*duplicateGroup)

	for _, outcome := range outcomes {
		sub := outcome.subscription
		if sub == nil || sub.Status != model.StatusActive {
			continue
		}

		category := outcome.verdict.Category
		if category == "" {
			if match := e.categories.Categorize(sub.MerchantKey); match != nil {
				category = match.Category
			}
		}
		if category == "" {
			continue
		}

		group, ok := groups[category]
		if !ok {
			group = &duplicateGroup{category: category}
			groups[category] = group
		}
		group.members = append(group.members, sub)
	}

	count := 0
	var emitted []model.Alert
	flagged := make(map[string]*duplicateGroup)

	// Deterministic group order for stable alerts across runs.
	categoryNames := make([]string, 0, len(groups))
	for name := range groups {
		categoryNames = append(categoryNames, name)
	}
	sort.Strings(categoryNames)

	for _, name := range categoryNames {
		group := groups[name]
		if len(group.members) < 2 {
			continue
		}

		sort.Slice(group.members, func(i, j int) bool {
			return group.members[i].MerchantKey < group.members[j].MerchantKey
		})

		merchants := make([]string, len(group.members))
		relatedIDs := make([]string, 0, len(group.members)-1)
		for i, member := range group.members {
			merchants[i] = member.MerchantKey
			if i > 0 {
				relatedIDs = append(relatedIDs, member.ID)
			}
		}

		alert := model.Alert{
			ID:             uuid.New().String(),
			Kind:           model.AlertDuplicate,
			SubscriptionID: group.members[0].ID,
			RelatedIDs:     relatedIDs,
			Evidence: fmt.Sprintf("%d active services share the category %s: %s",
				len(group.members), group.category, strings.Join(merchants, ", ")),
			Confidence: 0.7,
			CreatedAt:  e.now().UTC(),
		}

		if err := e.storage.SaveAlert(ctx, &alert); err != nil {
			return count, emitted, flagged, fmt.Errorf("failed to save duplicate alert for %s: %w", group.category, err)
		}

		slog.Info("Potential duplicate services flagged",
			"category", group.category,
			"merchants", merchants)

		count++
		emitted = append(emitted, alert)
		flagged[alert.ID] = group
	}

	return count, emitted, flagged, nil
}
