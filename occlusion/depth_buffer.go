package occlusion

import (
	"math"
)

// FarDepth is the value of a cell no occluder has been written to.
const FarDepth = math.MaxFloat32

// DepthBuffer is a low resolution grid of linear view depths. Row 0 is the top
// of the screen.
type DepthBuffer struct {
	width   int
	height  int
	cells   []float32
	written int
}

func NewDepthBuffer(width, height int) *DepthBuffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	b := &DepthBuffer{
		width:  width,
		height: height,
		cells:  make([]float32, width*height),
	}
	b.Clear()
	return b
}

func (b *DepthBuffer) Width() int {
	return b.width
}

func (b *DepthBuffer) Height() int {
	return b.height
}

// Clear resets every cell to FarDepth.
func (b *DepthBuffer) Clear() {
	for i := range b.cells {
		b.cells[i] = FarDepth
	}
	b.written = 0
}

// Depth returns the depth stored at the given cell. The boolean is false when
// the cell is outside the grid.
func (b *DepthBuffer) Depth(x, y int) (float32, bool) {
	if !b.inBounds(x, y) {
		return FarDepth, false
	}
	return b.cells[y*b.width+x], true
}

// Write stores depth at the given cell when it is closer than the current
// value, and reports whether it did.
func (b *DepthBuffer) Write(x, y int, depth float32) bool {
	if !b.inBounds(x, y) {
		return false
	}

	i := y*b.width + x
	current := b.cells[i]
	if depth >= current {
		return false
	}
	if current == FarDepth {
		b.written++
	}
	b.cells[i] = depth
	return true
}

// Coverage returns the fraction of cells that hold an occluder depth.
func (b *DepthBuffer) Coverage() float32 {
	if len(b.cells) == 0 {
		return 0
	}
	return float32(b.written) / float32(len(b.cells))
}

func (b *DepthBuffer) inBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}
