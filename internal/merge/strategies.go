package merge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cascadekit/cascade/pkg/models"
)

// aggregateStatus summarizes which items succeeded, failed, or timed out.
type aggregateStatus struct{}

func (aggregateStatus) Name() string { return StrategyAggregateStatus }

func (aggregateStatus) Combine(ordered []*models.Outcome) (models.MergeStatus, string, []models.Conflict) {
	var succeeded, failed, timedOut []string
	for _, o := range ordered {
		switch o.Status {
		case models.OutcomeSuccess:
			succeeded = append(succeeded, o.ItemID)
		case models.OutcomeTimedOut:
			timedOut = append(timedOut, o.ItemID)
		default:
			failed = append(failed, o.ItemID)
		}
	}

	group := func(ids []string) string {
		if len(ids) == 0 {
			return "none"
		}
		return strings.Join(ids, ", ")
	}
	output := fmt.Sprintf("succeeded: %s\nfailed: %s\ntimed_out: %s",
		group(succeeded), group(failed), group(timedOut))

	return aggregateStatusOf(ordered), output, nil
}

// concatenate joins each item's output in item-ID order, used for
// read/fetch-style items.
type concatenate struct{}

func (concatenate) Name() string { return StrategyConcatenate }

func (concatenate) Combine(ordered []*models.Outcome) (models.MergeStatus, string, []models.Conflict) {
	var b strings.Builder
	for i, o := range ordered {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== %s ===\n%s", o.ItemID, o.Output)
	}
	return aggregateStatusOf(ordered), b.String(), nil
}

// deduplicateRank unions line-oriented entity collections, ranking entities
// by occurrence count and recording how many duplicates were removed.
type deduplicateRank struct{}

func (deduplicateRank) Name() string { return StrategyDeduplicateRank }

func (deduplicateRank) Combine(ordered []*models.Outcome) (models.MergeStatus, string, []models.Conflict) {
	type entity struct {
		name  string
		count int
		seen  int // first-seen position, for deterministic tie-break
	}

	index := make(map[string]*entity)
	var entities []*entity
	total := 0

	for _, o := range ordered {
		for _, line := range strings.Split(o.Output, "\n") {
			name := strings.TrimSpace(line)
			if name == "" {
				continue
			}
			total++
			if e, ok := index[name]; ok {
				e.count++
				continue
			}
			e := &entity{name: name, count: 1, seen: len(entities)}
			index[name] = e
			entities = append(entities, e)
		}
	}

	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].count != entities[j].count {
			return entities[i].count > entities[j].count
		}
		return entities[i].seen < entities[j].seen
	})

	var b strings.Builder
	for _, e := range entities {
		b.WriteString(e.name)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nduplicates_removed: %d", total-len(entities))

	return aggregateStatusOf(ordered), b.String(), nil
}

// numericSum adds per-key numeric sub-totals (lines of the form "key: N")
// across items. Any failure-keyed count above zero fails the merge.
type numericSum struct{}

func (numericSum) Name() string { return StrategyNumericSum }

func (numericSum) Combine(ordered []*models.Outcome) (models.MergeStatus, string, []models.Conflict) {
	sums := make(map[string]int64)

	for _, o := range ordered {
		for _, line := range strings.Split(o.Output, "\n") {
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
			if err != nil {
				continue
			}
			sums[strings.TrimSpace(key)] += n
		}
	}

	keys := make([]string, 0, len(sums))
	for key := range sums {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	failureCount := int64(0)
	for i, key := range keys {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %d", key, sums[key])
		if strings.Contains(strings.ToLower(key), "fail") {
			failureCount += sums[key]
		}
	}

	status := aggregateStatusOf(ordered)
	if failureCount > 0 {
		status = models.MergeFailed
	}
	return status, b.String(), nil
}

// verifiedMarker is the line every item must report for verify-all to pass.
const verifiedMarker = "verified: true"

// verifyAll requires every item to carry the verified marker in its output.
// A single missing marker fails the merge and names the offender as a conflict.
type verifyAll struct{}

func (verifyAll) Name() string { return StrategyVerifyAll }

func (verifyAll) Combine(ordered []*models.Outcome) (models.MergeStatus, string, []models.Conflict) {
	var verified, missing []string
	var conflicts []models.Conflict

	for _, o := range ordered {
		if o.Status == models.OutcomeSuccess && hasVerifiedMarker(o.Output) {
			verified = append(verified, o.ItemID)
			continue
		}
		missing = append(missing, o.ItemID)
		conflicts = append(conflicts, models.Conflict{
			Artifact:   "verification",
			ItemIDs:    []string{o.ItemID},
			Resolution: "missing verified marker",
		})
	}

	group := func(ids []string) string {
		if len(ids) == 0 {
			return "none"
		}
		return strings.Join(ids, ", ")
	}
	output := fmt.Sprintf("verified: %s\nmissing: %s", group(verified), group(missing))

	status := models.MergeSuccess
	if len(missing) > 0 {
		status = models.MergeFailed
	}
	return status, output, conflicts
}

// hasVerifiedMarker reports whether any trimmed line equals the marker.
func hasVerifiedMarker(output string) bool {
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == verifiedMarker {
			return true
		}
	}
	return false
}
