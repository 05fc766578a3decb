package atlas

import (
	"log/slog"

	"github.com/gogpu/ggraph"
	"github.com/gogpu/ggraph/canvas"
	"github.com/gogpu/ggraph/geom"
)

// Collection owns the pages of one render type.
//
// Elements reference style keys. A key is drawn once, shared by every
// element with the same key, and removed only by GC after its last
// reference is gone.
type Collection struct {
	opts    Options
	scratch func(w, h int) *canvas.Canvas
	joined  scratchCache

	pages     []*Atlas
	keyToPage map[string]PageID

	idToKey     map[string]string
	keyToIDs    map[string]map[string]struct{}
	needsRedraw map[string]struct{}
}

// NewCollection creates an empty collection. scratch may be nil.
func NewCollection(opts Options, scratch func(w, h int) *canvas.Canvas) *Collection {
	if scratch == nil {
		var sc scratchCache
		scratch = sc.get
	}
	return &Collection{
		opts:        opts,
		scratch:     scratch,
		keyToPage:   make(map[string]PageID),
		idToKey:     make(map[string]string),
		keyToIDs:    make(map[string]map[string]struct{}),
		needsRedraw: make(map[string]struct{}),
	}
}

func (c *Collection) newPage() *Atlas {
	a := New(c.opts, c.scratch)
	c.pages = append(c.pages, a)
	return a
}

func (c *Collection) pageByID(id PageID) *Atlas {
	for _, a := range c.pages {
		if a.id == id {
			return a
		}
	}
	return nil
}

// Atlas returns the page holding key, or nil.
func (c *Collection) Atlas(key string) *Atlas {
	id, ok := c.keyToPage[key]
	if !ok {
		return nil
	}
	return c.pageByID(id)
}

// HasAtlas reports whether key is placed on a page.
func (c *Collection) HasAtlas(key string) bool {
	_, ok := c.keyToPage[key]
	return ok
}

// Pages returns the live pages in creation order.
func (c *Collection) Pages() []*Atlas {
	pages := make([]*Atlas, len(c.pages))
	copy(pages, c.pages)
	return pages
}

// Draw returns the page holding key, drawing the texture with fn first if
// the key is new or flagged for redraw. id becomes a reference of key.
func (c *Collection) Draw(id, key string, bb geom.BBox, fn DrawFunc) *Atlas {
	if _, ok := c.needsRedraw[key]; ok {
		delete(c.needsRedraw, key)
		c.DeleteKey(id, key)
		if a := c.Atlas(key); a != nil {
			a.forget(key)
			a.forceGC = true
		}
		delete(c.keyToPage, key)
	}

	a := c.Atlas(key)
	if a == nil {
		// Only the most recent page is tried. Space left at the end of
		// earlier pages is reclaimed by compaction.
		if n := len(c.pages); n > 0 && c.pages[n-1].CanFit(bb) {
			a = c.pages[n-1]
		} else {
			a = c.newPage()
		}
		if _, ok := a.Draw(key, bb, fn); !ok {
			a = c.newPage()
			a.Draw(key, bb, fn)
		}
		c.keyToPage[key] = a.id
	}

	if old, ok := c.idToKey[id]; ok && old != key {
		c.DeleteKey(id, old)
	}
	c.idsFor(key)[id] = struct{}{}
	c.idToKey[id] = key
	return a
}

func (c *Collection) idsFor(key string) map[string]struct{} {
	ids, ok := c.keyToIDs[key]
	if !ok {
		ids = make(map[string]struct{})
		c.keyToIDs[key] = ids
	}
	return ids
}

// DeleteKey removes id from the references of key.
func (c *Collection) DeleteKey(id, key string) {
	if c.idToKey[id] == key {
		delete(c.idToKey, id)
	}
	if ids, ok := c.keyToIDs[key]; ok {
		delete(ids, id)
	}
}

// MarkNeedsRedraw flags key so its texture is drawn again on next use even
// though the key itself did not change.
func (c *Collection) MarkNeedsRedraw(key string) {
	c.needsRedraw[key] = struct{}{}
}

// Dispose releases the GPU textures of every page. The pages and their
// keys stay usable and are uploaded again on next use.
func (c *Collection) Dispose() {
	for _, a := range c.pages {
		a.Dispose()
	}
}

// CheckKeyIsInvalid drops the reference of id to its previous key when the
// element now maps to newKey. It reports whether a reference was dropped.
func (c *Collection) CheckKeyIsInvalid(id, newKey string) bool {
	old, ok := c.idToKey[id]
	if !ok || old == newKey {
		return false
	}
	c.DeleteKey(id, old)
	return true
}

// RefCount returns the number of elements referencing key.
func (c *Collection) RefCount(key string) int {
	return len(c.keyToIDs[key])
}

func (c *Collection) markedKeys() map[string]bool {
	marked := make(map[string]bool)
	for key := range c.keyToPage {
		if len(c.keyToIDs[key]) == 0 {
			marked[key] = true
		}
	}
	return marked
}

// GC removes unreferenced keys and compacts the pages that held them.
// Pages without collected keys are kept as they are. Pages that are
// replaced release their GPU textures.
func (c *Collection) GC() {
	marked := c.markedKeys()
	forced := false
	for _, a := range c.pages {
		forced = forced || a.forceGC
	}
	if len(marked) == 0 && !forced {
		ggraph.Logger().Debug("atlas: nothing to garbage collect")
		return
	}

	before := len(c.pages)
	pages, keyToPage, discarded := compact(c.pages, marked, func() *Atlas {
		return New(c.opts, c.scratch)
	}, c.joined.get(c.opts.Size, c.opts.Size/c.opts.Rows))

	for key := range marked {
		delete(c.keyToIDs, key)
		delete(c.needsRedraw, key)
	}
	for _, a := range discarded {
		a.Dispose()
	}
	c.pages = pages
	c.keyToPage = keyToPage

	ggraph.Logger().Debug("atlas: garbage collected",
		slog.Int("collected", len(marked)),
		slog.Int("pagesBefore", before),
		slog.Int("pagesAfter", len(pages)))
}

// compact rebuilds the page list without the marked keys. Surviving
// textures of every touched page are copied, in order, into fresh pages.
// joined is the scratch canvas used to reassemble wrapped textures.
func compact(pages []*Atlas, marked map[string]bool, newPage func() *Atlas, joined *canvas.Canvas) (kept []*Atlas, keyToPage map[string]PageID, discarded []*Atlas) {
	keyToPage = make(map[string]PageID)
	var open *Atlas

	for _, old := range pages {
		keys := old.keys
		touched := old.forceGC
		for _, k := range keys {
			if marked[k] {
				touched = true
				break
			}
		}
		if !touched {
			kept = append(kept, old)
			for _, k := range keys {
				keyToPage[k] = old.id
			}
			continue
		}

		discarded = append(discarded, old)
		for _, k := range keys {
			if marked[k] {
				continue
			}
			w, h := old.assemble(k, joined)
			if open == nil || !open.fits(w) {
				open = newPage()
				kept = append(kept, open)
			}
			open.place(k, joined, w, h)
			keyToPage[k] = open.id
		}
	}
	return kept, keyToPage, discarded
}

// Counts returns the number of keys and the number of pages holding them.
func (c *Collection) Counts() (keys, pages int) {
	seen := make(map[PageID]struct{})
	for _, id := range c.keyToPage {
		seen[id] = struct{}{}
	}
	return len(c.keyToPage), len(seen)
}
