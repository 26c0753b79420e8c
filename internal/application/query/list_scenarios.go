package query

import (
	"context"

	"github.com/qaplayground/playground-hub/internal/domain/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST SCENARIOS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ScenarioDTO is one catalog entry with its current award.
type ScenarioDTO struct {
	ID    string       `json:"id"`
	Title string       `json:"title"`
	Tier  catalog.Tier `json:"difficulty"`
	XP    int          `json:"xp"`
}

// ListScenariosResult is the catalog listing.
type ListScenariosResult struct {
	Scenarios       []ScenarioDTO        `json:"scenarios"`
	XPTable         map[catalog.Tier]int `json:"xpTable"`
	CountByTier     map[catalog.Tier]int `json:"countByTier"`
	TotalPossibleXP int                  `json:"totalPossibleXP"`
}

// ListScenariosHandler lists the scenario catalog.
type ListScenariosHandler struct {
	catalog *catalog.Catalog
}

// NewListScenariosHandler creates a handler.
func NewListScenariosHandler(cat *catalog.Catalog) *ListScenariosHandler {
	return &ListScenariosHandler{catalog: cat}
}

// Handle returns every scenario in catalog order.
func (h *ListScenariosHandler) Handle(_ context.Context) *ListScenariosResult {
	scenarios := h.catalog.Scenarios()
	out := &ListScenariosResult{
		Scenarios:       make([]ScenarioDTO, 0, len(scenarios)),
		XPTable:         h.catalog.XPTable(),
		CountByTier:     h.catalog.CountByTier(),
		TotalPossibleXP: h.catalog.TotalPossibleXP(),
	}
	for _, s := range scenarios {
		xp, _ := h.catalog.XPFor(s.ID)
		out.Scenarios = append(out.Scenarios, ScenarioDTO{ID: s.ID, Title: s.Title, Tier: s.Tier, XP: xp})
	}
	return out
}
