package research

import (
	"net/url"
	"strings"
)

// Source is one aggregated source entry: a short human-readable title and the
// original URL.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CollectSources flattens the tree's sources into an ordered, deduplicated
// list. Traversal is depth-first pre-order; the first occurrence of a URL
// wins. A nil tree or a tree without sources yields an empty list.
func CollectSources(t *Tree) []Source {
	sources := []Source{}
	if t == nil {
		return sources
	}

	seen := make(map[string]bool)
	t.Walk(func(node *Tree, _ *Tree) {
		for _, raw := range node.Sources {
			if raw == "" || seen[raw] {
				continue
			}
			seen[raw] = true
			sources = append(sources, Source{
				Title: sourceTitle(raw),
				URL:   raw,
			})
		}
	})

	return sources
}

var segmentCleaner = strings.NewReplacer("-", " ", "_", " ")

// sourceTitle derives a display title from a source URL: the hostname with a
// leading "www." stripped, plus the last path segment prettified. The raw URL
// is returned when it cannot be parsed as one.
func sourceTitle(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}

	title := strings.TrimPrefix(u.Hostname(), "www.")

	if seg := lastPathSegment(u.Path); seg != "" {
		for _, ext := range []string{".html", ".pdf", ".php"} {
			if strings.HasSuffix(seg, ext) {
				seg = strings.TrimSuffix(seg, ext)
				break
			}
		}
		title += " - " + segmentCleaner.Replace(seg)
	}

	return title
}

func lastPathSegment(path string) string {
	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}
