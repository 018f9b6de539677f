// Package geo computes the covering lattice of query points for the
// directory crawl.
//
// All distances are handled in degree space. A mile is 1/69 of a degree of
// latitude everywhere, and 1/(69*cos(lat)) of a degree of longitude at a given
// latitude, which is accurate enough at city scale for a search-grid layout.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// SpacingFactor sets lattice spacing to 1.5x the per-point search radius,
// overlapping adjacent circles by roughly a third so coverage has no gaps.
const SpacingFactor = 1.5

// RetainFactor over-includes points slightly beyond the total radius so edge
// cells are not lost to corner trimming.
const RetainFactor = 1.1

const milesPerLatDegree = 69.0

// Point is one query origin of the crawl grid.
type Point struct {
	ID          string
	Location    orb.Point
	RadiusMiles float64
	// DistanceDeg is the Euclidean degree-space distance from the grid center.
	DistanceDeg float64
}

// Lat returns the point latitude.
func (p Point) Lat() float64 { return p.Location.Lat() }

// Lng returns the point longitude.
func (p Point) Lng() float64 { return p.Location.Lon() }

// MilesToLatDegrees converts miles to degrees of latitude.
func MilesToLatDegrees(miles float64) float64 {
	return miles / milesPerLatDegree
}

// MilesToLngDegrees converts miles to degrees of longitude at latitude lat.
func MilesToLngDegrees(miles, lat float64) float64 {
	return miles / (milesPerLatDegree * math.Cos(lat*math.Pi/180.0))
}

// Grid builds the covering lattice around center for a total coverage radius
// totalMiles and per-point search radius pointMiles.
//
// Axis offsets are multiples of SpacingFactor*pointMiles out to the last
// multiple whose search circle still fits inside totalMiles, so the outermost
// ring of circles touches the coverage boundary. The full rectangular lattice
// is then trimmed to points within RetainFactor*totalMiles (degree space) of
// center, cutting the far corners of the square.
//
// Output is deterministic: row-major from the south-west corner, IDs derived
// from the lattice indices.
func Grid(center orb.Point, totalMiles, pointMiles float64) []Point {
	spacingMiles := SpacingFactor * pointMiles
	steps := int(math.Floor((totalMiles - pointMiles) / spacingMiles))
	if steps < 0 {
		steps = 0
	}
	retainDeg := RetainFactor * MilesToLatDegrees(totalMiles)
	return lattice("", center, steps, spacingMiles, pointMiles, retainDeg)
}

// Subdivide re-expands a saturated cell into a finer sub-grid with half the
// search radius, re-crawling the whole parent circle. The step count rounds
// up so the outer ring of children reaches past the parent radius, and no
// circular trim is applied: every part of a saturated cell is saturated
// territory, so the corners stay. Sub-point IDs are composites of the parent
// cell ID so results from both passes never collide when merged.
func Subdivide(parent Point) []Point {
	half := parent.RadiusMiles / 2
	spacingMiles := SpacingFactor * half
	steps := int(math.Ceil((parent.RadiusMiles - half) / spacingMiles))
	if steps < 1 {
		steps = 1
	}
	return lattice(parent.ID+"-", parent.Location, steps, spacingMiles, half, 0)
}

// lattice emits the (2*steps+1)^2 square of points spaced spacingMiles per
// axis. A positive retainDeg trims points farther than that degree-space
// distance from center.
func lattice(idPrefix string, center orb.Point, steps int, spacingMiles, pointMiles, retainDeg float64) []Point {
	spacingLat := MilesToLatDegrees(spacingMiles)
	spacingLng := MilesToLngDegrees(spacingMiles, center.Lat())

	points := make([]Point, 0, (2*steps+1)*(2*steps+1))
	for row := -steps; row <= steps; row++ {
		for col := -steps; col <= steps; col++ {
			dLat := float64(row) * spacingLat
			dLng := float64(col) * spacingLng
			dist := math.Hypot(dLat, dLng)
			if retainDeg > 0 && dist > retainDeg {
				continue
			}
			points = append(points, Point{
				ID:          fmt.Sprintf("%sr%+03dc%+03d", idPrefix, row, col),
				Location:    orb.Point{center.Lon() + dLng, center.Lat() + dLat},
				RadiusMiles: pointMiles,
				DistanceDeg: dist,
			})
		}
	}
	return points
}

// RadiusMeters converts the per-point search radius to the meters the
// directory API expects.
func (p Point) RadiusMeters() int {
	return int(math.Round(p.RadiusMiles * 1609.34))
}
