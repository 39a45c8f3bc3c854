package systems

import "github.com/pthm-cable/swarm/components"

// neighborOffsets maps each compass direction to its row/column delta,
// indexed by the components.Neighbor* constants.
var neighborOffsets = [components.NumNeighbors][2]int{
	components.NeighborTopLeft:     {-1, -1},
	components.NeighborTop:         {-1, 0},
	components.NeighborTopRight:    {-1, 1},
	components.NeighborRight:       {0, 1},
	components.NeighborBottomRight: {1, 1},
	components.NeighborBottom:      {1, 0},
	components.NeighborBottomLeft:  {1, -1},
	components.NeighborLeft:        {0, -1},
}

// BuildGrid constructs the node array the per-frame kernels run against:
// cols*rows grid nodes with bounds and 8-way neighbor links, followed by
// spare slots reserved for subdivision. Subdivision itself happens outside
// the frame loop; spare slots start with every link invalid and stay out of
// use until it wires them in.
func BuildGrid(region Region, cols, rows, spare int) []components.QuadNode {
	grid := NewGridParams(region, cols, rows)
	nodes := make([]components.QuadNode, cols*rows+spare)

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			node := &nodes[row*cols+col]
			node.Left = grid.Left + float32(col)*grid.CellWidth
			node.Top = grid.Top + float32(row)*grid.CellHeight
			node.Right = node.Left + grid.CellWidth
			node.Bottom = node.Top + grid.CellHeight
			node.InUse = true

			for dir, off := range neighborOffsets {
				nr := row + off[0]
				nc := col + off[1]
				if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
					node.Neighbors[dir] = components.InvalidIndex
					continue
				}
				node.Neighbors[dir] = uint32(nr*cols + nc)
			}
			for c := range node.Children {
				node.Children[c] = components.InvalidIndex
			}
		}
	}

	for i := cols * rows; i < len(nodes); i++ {
		node := &nodes[i]
		for d := range node.Neighbors {
			node.Neighbors[d] = components.InvalidIndex
		}
		for c := range node.Children {
			node.Children[c] = components.InvalidIndex
		}
	}

	return nodes
}
