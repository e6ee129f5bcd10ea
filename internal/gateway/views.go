package gateway

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/knet-ai/research-client/internal/chat"
	"github.com/knet-ai/research-client/internal/research"
)

const viewCacheSize = 64

// treeViews holds the derived data for one message's research tree: the
// aggregated source list and the flattened node/edge sets, computed in a
// single pass and reused until the tree reference changes.
type treeViews struct {
	tree    *research.Tree
	sources []research.Source
	nodes   []research.Node
	edges   []research.Edge
}

// viewCache caches derived views per message id. Trees are replaced whole on
// every update, so pointer identity is enough to detect staleness.
type viewCache struct {
	cache *lru.Cache[string, *treeViews]
}

func newViewCache() *viewCache {
	cache, _ := lru.New[string, *treeViews](viewCacheSize)
	return &viewCache{cache: cache}
}

func (v *viewCache) viewsFor(msg chat.Message) *treeViews {
	if cached, ok := v.cache.Get(msg.ID); ok && cached.tree == msg.ResearchTree {
		return cached
	}

	nodes, edges := research.BuildGraph(msg.ResearchTree)
	views := &treeViews{
		tree:    msg.ResearchTree,
		sources: research.CollectSources(msg.ResearchTree),
		nodes:   nodes,
		edges:   edges,
	}
	v.cache.Add(msg.ID, views)
	return views
}
