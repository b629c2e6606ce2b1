package models

import "time"

// Subject is the dashboard view of an academic offering. Code is the join key used everywhere.
type Subject struct {
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Credits   int       `json:"credits"`
	Term      Term      `json:"term"`
	CreatedAt time.Time `json:"createdAt"`
}
