package engine

import (
	"math/rand"

	"github.com/wricardo/mcp-training/coveragebot/game/grid"
)

// Battery status codes
const (
	BatteryFull     = "FULL"
	BatteryOK       = "OK"
	BatteryLow      = "LOW"
	BatteryCritical = "CRITICAL"
	BatteryEmpty    = "EMPTY"
)

// homeAttempts bounds the random draws before falling back to a scan
const homeAttempts = 64

// BatteryStatus classifies a battery level against the low threshold.
// CRITICAL is half the threshold or less.
func BatteryStatus(battery, lowThreshold float64) string {
	switch {
	case battery >= MaxBattery:
		return BatteryFull
	case battery <= MinBattery:
		return BatteryEmpty
	case battery <= lowThreshold/2:
		return BatteryCritical
	case battery <= lowThreshold:
		return BatteryLow
	default:
		return BatteryOK
	}
}

// pickHome draws a home origin at least margin cells from the grid edges.
// Origins whose footprint is forbidden are avoided when any other exists.
func pickHome(g grid.Grid, region *grid.Region, margin int, rng *rand.Rand) grid.Cell {
	loCol, hiCol := homeRange(g.Width, g.Footprint, margin)
	loRow, hiRow := homeRange(g.Height, g.Footprint, margin)

	var cell grid.Cell
	for i := 0; i < homeAttempts; i++ {
		cell = grid.Cell{
			Col: loCol + rng.Intn(hiCol-loCol+1),
			Row: loRow + rng.Intn(hiRow-loRow+1),
		}
		if !g.IsFootprintForbidden(cell.Col, cell.Row, region) {
			return cell
		}
	}

	for row := loRow; row <= hiRow; row++ {
		for col := loCol; col <= hiCol; col++ {
			if !g.IsFootprintForbidden(col, row, region) {
				return grid.Cell{Col: col, Row: row}
			}
		}
	}
	return cell
}
