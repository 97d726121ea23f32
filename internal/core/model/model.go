// Package model defines the shared value types of the game engine.
package model

import "fmt"

// Coordinates is a geographic position in EPSG:4326 degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// CellID identifies a grid cell by its integer grid coordinates. It is a
// comparable composite key, so maps can index on it directly without a
// formatted-string round trip (which is ambiguous for negative numbers).
type CellID struct {
	I int `json:"i"`
	J int `json:"j"`
}

func (id CellID) String() string { return fmt.Sprintf("%d,%d", id.I, id.J) }

// Coin is an individually identified collectible unit. Cell, Seq and
// Origin are fixed at mint time and never change; only custody does.
type Coin struct {
	ID     string      `json:"id"`
	Cell   CellID      `json:"cell"`
	Seq    int         `json:"seq"`
	Origin Coordinates `json:"origin"`
}
