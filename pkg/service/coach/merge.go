package coach

import "github.com/everlift-app/everlift/pkg/domain/model"

// MergeHistory reconciles server-declared rows into the local transcript.
// Rows already present locally, matched by composite key, are never
// re-inserted, so fetching the same page twice produces no duplicates. Local
// ordering is preserved; missing rows are appended only.
func MergeHistory(local []model.Message, fetched []model.Message) []model.Message {
	seen := make(map[string]struct{}, len(local))
	for _, msg := range local {
		seen[msg.CompositeKey()] = struct{}{}
	}

	merged := local
	for _, msg := range fetched {
		key := msg.CompositeKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		msg.BackendKey = key
		merged = append(merged, msg)
	}
	return merged
}
