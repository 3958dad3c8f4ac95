// Package gridmap holds the occupancy map the footstep planner searches over.
package gridmap

import (
	"math"

	"github.com/pkg/errors"

	"github.com/viamrobotics/footstepnav/spatialmath"
)

// DefaultOccupiedThreshold is the occupancy value at and above which a cell is treated as an
// obstacle. Unknown cells (-1) are treated as obstacles as well.
const DefaultOccupiedThreshold = 50

// OccupancyGrid is an occupancy map as received from a map server. Data is row-major with values
// in [0, 100] or -1 for unknown.
type OccupancyGrid struct {
	FrameID    string
	Resolution float64
	Width      int
	Height     int
	Origin     spatialmath.Pose2D
	Data       []int8
}

// Validate checks that the grid dimensions are consistent.
func (g *OccupancyGrid) Validate() error {
	if g.FrameID == "" {
		return errors.New("occupancy grid has no frame id")
	}
	if g.Resolution <= 0 {
		return errors.Errorf("occupancy grid resolution must be positive, got %f", g.Resolution)
	}
	if g.Width <= 0 || g.Height <= 0 {
		return errors.Errorf("occupancy grid must be non-empty, got %dx%d", g.Width, g.Height)
	}
	if len(g.Data) != g.Width*g.Height {
		return errors.Errorf("occupancy grid has %d cells, expected %d", len(g.Data), g.Width*g.Height)
	}
	return nil
}

// GridMap2D is a binary obstacle map built from an OccupancyGrid.
type GridMap2D struct {
	frameID    string
	resolution float64
	width      int
	height     int
	origin     spatialmath.Pose2D
	occupied   []bool
}

// New builds a GridMap2D, marking cells at or above threshold as occupied.
func New(grid *OccupancyGrid, threshold int8) (*GridMap2D, error) {
	if grid == nil {
		return nil, errors.New("occupancy grid is nil")
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	occupied := make([]bool, len(grid.Data))
	for i, v := range grid.Data {
		occupied[i] = v < 0 || v >= threshold
	}
	return &GridMap2D{
		frameID:    grid.FrameID,
		resolution: grid.Resolution,
		width:      grid.Width,
		height:     grid.Height,
		origin:     grid.Origin,
		occupied:   occupied,
	}, nil
}

// NewFree returns an obstacle-free map of the given size in meters, centered on the frame origin.
func NewFree(frameID string, resolution, widthM, heightM float64) (*GridMap2D, error) {
	w := int(math.Ceil(widthM / resolution))
	h := int(math.Ceil(heightM / resolution))
	return New(&OccupancyGrid{
		FrameID:    frameID,
		Resolution: resolution,
		Width:      w,
		Height:     h,
		Origin:     spatialmath.Pose2D{X: -widthM / 2, Y: -heightM / 2},
		Data:       make([]int8, w*h),
	}, DefaultOccupiedThreshold)
}

// FrameID is the frame the map is expressed in.
func (m *GridMap2D) FrameID() string {
	return m.frameID
}

// Resolution is the cell edge length in meters.
func (m *GridMap2D) Resolution() float64 {
	return m.resolution
}

// WorldToMap converts a point in the map frame into cell coordinates. ok is false when the point
// falls outside the map.
func (m *GridMap2D) WorldToMap(x, y float64) (col, row int, ok bool) {
	local := spatialmath.PoseBetween(m.origin, spatialmath.Pose2D{X: x, Y: y})
	col = int(math.Floor(local.X / m.resolution))
	row = int(math.Floor(local.Y / m.resolution))
	return col, row, m.inside(col, row)
}

// MapToWorld returns the center of a cell in the map frame.
func (m *GridMap2D) MapToWorld(col, row int) (x, y float64) {
	center := spatialmath.Compose(m.origin, spatialmath.Pose2D{
		X: (float64(col) + 0.5) * m.resolution,
		Y: (float64(row) + 0.5) * m.resolution,
	})
	return center.X, center.Y
}

// IsOccupied reports whether the point is an obstacle. Points outside the map are occupied.
func (m *GridMap2D) IsOccupied(x, y float64) bool {
	col, row, ok := m.WorldToMap(x, y)
	if !ok {
		return true
	}
	return m.occupied[row*m.width+col]
}

func (m *GridMap2D) inside(col, row int) bool {
	return col >= 0 && row >= 0 && col < m.width && row < m.height
}
