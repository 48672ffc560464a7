package models

import (
	"fmt"
	"hash/fnv"
	"time"
)

type Project struct {
	ID            string    `json:"id"`
	OrgID         string    `json:"org_id"`
	ERPProjectRef string    `json:"erp_project_ref"`
	Number        string    `json:"number"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProjectColor is the per-organization color choice for one external project
// reference. Upsert-only; every cell referencing the project picks it up on
// the next grid build.
type ProjectColor struct {
	OrgID         string `json:"org_id"`
	ERPProjectRef string `json:"erp_project_ref"`
	Color         string `json:"color"`
}

// fallbackPalette holds the colors assigned to projects nobody has picked a
// color for yet. Chosen to stay readable against the grid background.
var fallbackPalette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f",
	"#edc948", "#b07aa1", "#ff9da7", "#9c755f", "#bab0ac",
}

// FallbackColor derives a stable color from an external project reference so
// a project keeps the same color across rebuilds until someone assigns one.
func FallbackColor(erpProjectRef string) string {
	h := fnv.New32a()
	fmt.Fprint(h, erpProjectRef)
	return fallbackPalette[h.Sum32()%uint32(len(fallbackPalette))]
}
