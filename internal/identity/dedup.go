package identity

import (
	"github.com/topicworks/digest-cli/internal/model"
)

// Deduplicator drops repeated items within one run and flags novelty against
// the history ledger. First occurrence wins, so survivorship follows the
// order items arrive in the aggregated batch.
type Deduplicator struct {
	ledger   *Ledger
	seenIDs  map[string]struct{}
	seenURLs map[string]struct{}
}

// NewDeduplicator creates a Deduplicator backed by ledger. A nil ledger
// disables novelty detection: every kept item is new.
func NewDeduplicator(ledger *Ledger) *Deduplicator {
	if ledger == nil {
		ledger = &Ledger{ids: make(map[string]struct{})}
	}
	return &Deduplicator{
		ledger:   ledger,
		seenIDs:  make(map[string]struct{}),
		seenURLs: make(map[string]struct{}),
	}
}

// Dedupe filters items, keeping the first occurrence of each identity or
// normalized URL and setting IsNew on survivors.
func (d *Deduplicator) Dedupe(items []model.ContentItem) []model.ContentItem {
	kept := make([]model.ContentItem, 0, len(items))
	for _, item := range items {
		if d.isDuplicate(item) {
			continue
		}
		item.IsNew = !d.ledger.Contains(item.ID)
		d.markSeen(item)
		kept = append(kept, item)
	}
	return kept
}

func (d *Deduplicator) isDuplicate(item model.ContentItem) bool {
	if _, ok := d.seenIDs[item.ID]; ok {
		return true
	}
	if item.URL != "" {
		if _, ok := d.seenURLs[NormalizeURL(item.URL)]; ok {
			return true
		}
	}
	return false
}

func (d *Deduplicator) markSeen(item model.ContentItem) {
	if item.ID != "" {
		d.seenIDs[item.ID] = struct{}{}
	}
	if item.URL != "" {
		d.seenURLs[NormalizeURL(item.URL)] = struct{}{}
	}
}
