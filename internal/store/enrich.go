package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/engramlabs/engram/internal/model"
)

// Enrich prepends a memory-context block to an outgoing message, built
// from the entries most relevant to it. When nothing is recalled the
// message passes through unchanged.
func Enrich(ctx context.Context, mem Memory, message string, recallLimit, depth int) string {
	if mem == nil || recallLimit <= 0 {
		return message
	}

	entries := mem.Recall(ctx, message, recallLimit, nil)
	if len(entries) == 0 {
		return message
	}

	if depth > 0 {
		entries = append(entries, CollectNeighbors(mem, entries, depth)...)
	}

	var b strings.Builder
	b.WriteString("[Memory context]\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s: %s\n", e.Key, e.Content)
	}
	b.WriteString("[/Memory context]\n\n")
	b.WriteString(message)
	return b.String()
}

// CollectNeighbors walks the link graph outward from the seed entries up
// to depth hops, returning the entries discovered along the way. Seeds
// and duplicates are excluded.
func CollectNeighbors(mem Memory, seeds []model.Entry, depth int) []model.Entry {
	seen := make(map[string]bool, len(seeds))
	for _, e := range seeds {
		seen[e.Key] = true
	}

	frontier := seeds
	var found []model.Entry
	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []model.Entry
		for _, e := range frontier {
			for _, n := range mem.Neighbors(e.Key, -1) {
				if seen[n.Key] {
					continue
				}
				seen[n.Key] = true
				found = append(found, n)
				next = append(next, n)
			}
		}
		frontier = next
	}
	return found
}
