package pipeline

import "github.com/vapter/vaptord/internal/models"

// remainingPlugins computes the dispatcher algorithm's step 2: the
// ordered remaining-plugin list after justCompleted — enabled plugins,
// not yet populated in parsedResults, that come strictly after
// justCompleted in the canonical order.
func remainingPlugins(st *models.ScanType, parsed models.ParsedResults, justCompleted models.Module) []models.Module {
	enabled := st.EnabledPlugins()
	afterIdx := 0
	for i, mod := range models.CanonicalPluginOrder {
		if mod == justCompleted {
			afterIdx = i + 1
			break
		}
	}

	var out []models.Module
	for _, mod := range enabled {
		idx := canonicalIndex(mod)
		if idx < afterIdx {
			continue
		}
		if !parsed.Empty(mod) {
			continue
		}
		out = append(out, mod)
	}
	return out
}

func canonicalIndex(mod models.Module) int {
	for i, m := range models.CanonicalPluginOrder {
		if m == mod {
			return i
		}
	}
	return len(models.CanonicalPluginOrder)
}
