package domain

import "time"

type TableStatus string

const (
	TableStatusAvailable     TableStatus = "AVAILABLE"
	TableStatusOccupied      TableStatus = "OCCUPIED"
	TableStatusNeedsCleaning TableStatus = "NEEDS_CLEANING"
)

func (s TableStatus) IsValid() bool {
	switch s {
	case TableStatusAvailable, TableStatusOccupied, TableStatusNeedsCleaning:
		return true
	}
	return false
}

type Table struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Capacity       int         `json:"capacity"`
	Status         TableStatus `json:"status"`
	CurrentOrderID *string     `json:"currentOrderId,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

func (t Table) Clone() Table {
	c := t
	c.CurrentOrderID = cloneString(t.CurrentOrderID)
	return c
}
