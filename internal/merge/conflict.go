package merge

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cascadekit/cascade/pkg/models"
)

// artifactSection is the optional structured block an item's output may carry
// to declare which shared artifacts it modified and with what content (or
// content hash).
type artifactSection struct {
	Artifacts map[string]string `yaml:"artifacts"`
}

// claim is one item's declared write to a named artifact.
type claim struct {
	itemID  string
	wave    int
	content string
}

// detectArtifactConflicts finds artifacts claimed by multiple items with
// differing content. The resolution prefers the item from the earlier wave;
// within the same wave the lower item ID wins. Resolutions are always
// recorded, never silent. Identical content from multiple items is not a
// conflict.
func detectArtifactConflicts(ordered []*models.Outcome) []models.Conflict {
	claims := make(map[string][]claim)

	for _, o := range ordered {
		var section artifactSection
		// Outputs are opaque; anything that does not parse as an artifact
		// section simply makes no claims.
		if err := yaml.Unmarshal([]byte(o.Output), &section); err != nil {
			continue
		}
		for name, content := range section.Artifacts {
			claims[name] = append(claims[name], claim{
				itemID:  o.ItemID,
				wave:    o.WaveIndex,
				content: content,
			})
		}
	}

	names := make([]string, 0, len(claims))
	for name := range claims {
		names = append(names, name)
	}
	sort.Strings(names)

	var conflicts []models.Conflict
	for _, name := range names {
		cs := claims[name]
		if len(cs) < 2 || allSameContent(cs) {
			continue
		}

		sameWave := true
		for _, c := range cs[1:] {
			if c.wave != cs[0].wave {
				sameWave = false
				break
			}
		}

		winner := cs[0]
		for _, c := range cs[1:] {
			if c.wave < winner.wave || (c.wave == winner.wave && c.itemID < winner.itemID) {
				winner = c
			}
		}

		resolution := fmt.Sprintf("kept %s (earlier wave)", winner.itemID)
		if sameWave {
			resolution = fmt.Sprintf("kept %s (lower item id)", winner.itemID)
		}

		ids := make([]string, 0, len(cs))
		for _, c := range cs {
			ids = append(ids, c.itemID)
		}
		sort.Strings(ids)

		conflicts = append(conflicts, models.Conflict{
			Artifact:   name,
			ItemIDs:    ids,
			WinnerID:   winner.itemID,
			Resolution: resolution,
		})
	}
	return conflicts
}

// allSameContent reports whether every claim carries identical content.
func allSameContent(cs []claim) bool {
	for _, c := range cs[1:] {
		if c.content != cs[0].content {
			return false
		}
	}
	return true
}
