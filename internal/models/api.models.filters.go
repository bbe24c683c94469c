package models

import "time"

// RelayEventFilters defines the available filter options for relay
// event listings.
type RelayEventFilters struct {
	Status *bool      `json:"status"`
	From   *time.Time `json:"from"`
	To     *time.Time `json:"to"`
}

// SensorReadingFilters defines the available filter options for sensor
// reading listings.
type SensorReadingFilters struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// PaginationMeta describes the page returned by a list operation.
// HasNext is true iff offset+limit < total.
type PaginationMeta struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

// NewPaginationMeta computes page metadata from the request window and
// the total matching row count.
func NewPaginationMeta(total int64, limit, offset int) PaginationMeta {
	return PaginationMeta{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasNext: int64(offset+limit) < total,
		HasPrev: offset > 0,
	}
}
