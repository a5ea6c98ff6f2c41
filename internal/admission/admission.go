// Package admission decides which freshly collected candidates are new.
package admission

import (
	"strings"

	"github.com/jonathan/competition-radar/internal/types"
)

// Reason is why a candidate was rejected.
type Reason string

// Rejection reasons
const (
	ReasonKnownURL         Reason = "known_source_url"
	ReasonKnownDescription Reason = "known_description"
	ReasonBatchDuplicate   Reason = "batch_duplicate"
)

// Keys are the persisted dedup keys.
type Keys struct {
	URLs         map[string]struct{}
	Descriptions map[string]struct{}
}

// KeyPair is one persisted record's dedup keys; either may be empty.
type KeyPair struct {
	SourceURL   string
	Description string
}

// NewKeys indexes persisted pairs. Blank values are ignored.
func NewKeys(pairs []KeyPair) *Keys {
	k := &Keys{
		URLs:         make(map[string]struct{}, len(pairs)),
		Descriptions: make(map[string]struct{}, len(pairs)),
	}
	for _, p := range pairs {
		if u := strings.TrimSpace(p.SourceURL); u != "" {
			k.URLs[u] = struct{}{}
		}
		if d := strings.TrimSpace(p.Description); d != "" {
			k.Descriptions[d] = struct{}{}
		}
	}
	return k
}

// Rejection is one rejected candidate.
type Rejection struct {
	Item   types.CandidateItem
	Reason Reason
}

// Decision partitions a batch. len(Admitted) plus the three counters always equals the input size.
type Decision struct {
	Admitted           []types.CandidateItem
	Rejected           []Rejection
	SkippedURL         int
	SkippedDescription int
	SkippedInBatch     int
}

// Filter partitions candidates against persisted keys and against earlier candidates in the
// same batch. Matching is exact on trimmed text. A blank description never rejects, nor does
// a blank source URL. Repeated source URLs within the batch count as batch duplicates since
// source URLs are unique in the store.
func Filter(items []types.CandidateItem, existing *Keys) *Decision {
	if existing == nil {
		existing = NewKeys(nil)
	}
	d := &Decision{}
	seenDesc := make(map[string]struct{})
	seenURL := make(map[string]struct{})

	for _, item := range items {
		url := strings.TrimSpace(item.SourceURL)
		desc := strings.TrimSpace(item.BodyText)

		if url != "" {
			if _, ok := existing.URLs[url]; ok {
				d.reject(item, ReasonKnownURL)
				continue
			}
		}
		if desc != "" {
			if _, ok := existing.Descriptions[desc]; ok {
				d.reject(item, ReasonKnownDescription)
				continue
			}
			if _, ok := seenDesc[desc]; ok {
				d.reject(item, ReasonBatchDuplicate)
				continue
			}
		}
		if url != "" {
			if _, ok := seenURL[url]; ok {
				d.reject(item, ReasonBatchDuplicate)
				continue
			}
			seenURL[url] = struct{}{}
		}
		if desc != "" {
			seenDesc[desc] = struct{}{}
		}
		d.Admitted = append(d.Admitted, item)
	}
	return d
}

func (d *Decision) reject(item types.CandidateItem, reason Reason) {
	d.Rejected = append(d.Rejected, Rejection{Item: item, Reason: reason})
	switch reason {
	case ReasonKnownURL:
		d.SkippedURL++
	case ReasonKnownDescription:
		d.SkippedDescription++
	case ReasonBatchDuplicate:
		d.SkippedInBatch++
	}
}
