package decode

// Point is a position in frame pixel coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Corner indices into Result.Corners
const (
	TopLeft = iota
	TopRight
	BottomRight
	BottomLeft
)

// Result is a successful detection: the payload and the symbol's outline
type Result struct {
	Payload string   `json:"payload"`
	Corners [4]Point `json:"corners"` // top-left, top-right, bottom-right, bottom-left
}

// Centroid returns the mean of the four corners
func (r *Result) Centroid() Point {
	var c Point
	for _, p := range r.Corners {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= 4
	c.Y /= 4
	return c
}
