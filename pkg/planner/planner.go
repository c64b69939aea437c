package planner

import (
	"github.com/pkg/errors"
)

var (
	ErrExhausted   = errors.New("no more goals")
	ErrRouteLocked = errors.New("route cannot change once navigation has started")
)

// Origin is where the robot is placed: X, Y in mm and the orientation in
// radians.
type Origin struct {
	X, Y    float64
	Heading float32
}

// Point is a waypoint in mm.
type Point struct {
	X, Y float64
}

// Planner is a path planner based on points, visited in order.
type Planner struct {
	start  Origin
	points []Point
	pos    int
	locked bool
}

// FromPoints creates a planner that places the robot at start and then
// drives through points.
func FromPoints(start Origin, points []Point) *Planner {
	p := &Planner{start: start}
	for _, pt := range points {
		_ = p.Push(pt.X, pt.Y)
	}
	return p
}

// Push adds a point to the end of the route.
func (p *Planner) Push(x, y float64) error {
	if p.locked {
		return ErrRouteLocked
	}
	p.points = append(p.points, Point{X: x, Y: y})
	return nil
}

// Start gets the start point and orientation.
func (p *Planner) Start() Origin {
	return p.start
}

// NextGoal returns the next goal to reach, or ErrExhausted once every point
// has been handed out.
func (p *Planner) NextGoal() (Point, error) {
	p.locked = true
	if p.pos >= len(p.points) {
		return Point{}, ErrExhausted
	}
	pt := p.points[p.pos]
	p.pos++
	return pt, nil
}

// Restart rewinds the planner so the first point is the next goal.
func (p *Planner) Restart() {
	p.pos = 0
}

func (p *Planner) Len() int {
	return len(p.points)
}

// Cursor is the index of the next point NextGoal will return.
func (p *Planner) Cursor() int {
	return p.pos
}

func (p *Planner) Points() []Point {
	return append([]Point(nil), p.points...)
}
