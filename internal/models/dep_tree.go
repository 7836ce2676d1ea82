package models

// DepTreeNode is one row of a dependency tree walk. Direction is
// "up" (blockers of the root) or "down" (tasks the root blocks).
type DepTreeNode struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Status    string `json:"status"`
	Type      string `json:"type"`
	Depth     int    `json:"depth"`
	Direction string `json:"direction"`
	DepType   string `json:"dep_type"`
}
