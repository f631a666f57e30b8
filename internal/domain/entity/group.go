package entity

import "time"

// ApproverGroup is a named group of users allowed to sign off approval levels.
// A group implies every group below it in the tree.
type ApproverGroup struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor is the authenticated identity performing an operation
type Actor struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	GroupIDs []int64 `json:"group_ids"`
	IP       string  `json:"-"`
}
