package download

import "github.com/tvmirror/playlist-mirror/internal/models"

// Merge flattens per-playlist mapping sets into one job list with unique
// source URLs. First appearance fixes a URL's position, repeats overwrite
// the destination (last write wins), so merging the same input again yields
// the same job list.
func Merge(mappingSets ...[]models.IconMapping) []models.IconMapping {
	index := make(map[string]int)
	var merged []models.IconMapping

	for _, set := range mappingSets {
		for _, mapping := range set {
			if at, seen := index[mapping.SourceURL]; seen {
				merged[at] = mapping
				continue
			}
			index[mapping.SourceURL] = len(merged)
			merged = append(merged, mapping)
		}
	}

	return merged
}
