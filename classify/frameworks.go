package classify

import "strings"

// frameworkMarker ties a display name to the markup signatures that betray
// it. Detection scans both snapshots: a framework shell is often visible
// only in the raw document, its hydration output only in the settled one.
type frameworkMarker struct {
	name    string
	markers []string
}

// frameworkTable is ordered; detection output preserves this order so
// reports are stable.
var frameworkTable = []frameworkMarker{
	{"Next.js", []string{"__next_data__", "/_next/"}},
	{"React", []string{"data-reactroot", "data-reactid", "react-dom"}},
	{"Nuxt", []string{"__nuxt__", "/_nuxt/"}},
	{"Vue", []string{"data-v-app", "vue.min.js", "vue.runtime"}},
	{"Angular", []string{"ng-version"}},
	{"Svelte", []string{"svelte-"}},
	{"Gatsby", []string{"___gatsby"}},
	{"Astro", []string{"astro-island"}},
	{"WordPress", []string{"wp-content", "wp-includes"}},
	{"Shopify", []string{"cdn.shopify.com"}},
	{"jQuery", []string{"jquery"}},
}

// DetectFrameworks scans both snapshots for client-side framework
// signatures. Returns display names in table order, deduplicated.
func DetectFrameworks(rawMarkup, settledMarkup string) []string {
	haystack := strings.ToLower(rawMarkup) + " " + strings.ToLower(settledMarkup)

	var found []string
	for _, fw := range frameworkTable {
		for _, marker := range fw.markers {
			if strings.Contains(haystack, marker) {
				found = append(found, fw.name)
				break
			}
		}
	}
	return found
}
