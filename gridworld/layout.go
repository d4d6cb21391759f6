package gridworld

// BuildReferenceStore lays out the default demonstration store used by the
// session controller when no map file is supplied: an entrance top-left, an
// exit bottom-left, three shelf aisles (dairy, beverages, bread, snacks) and
// two checkouts bottom-right. Grids smaller than 10x12 simply omit
// whichever aisles no longer fit.
func BuildReferenceStore(rows, cols int) *Grid {
	g := NewGrid(rows, cols)

	g.Cells[0][0].Kind = Entrance
	g.Cells[rows-1][0].Kind = Exit

	setShelf := func(r, c int, category string, id int, dir Direction) {
		if r < 0 || r >= rows || c < 0 || c >= cols {
			return
		}
		cell := &g.Cells[r][c]
		cell.Kind = Shelf
		cell.Capacity = 0
		cell.Category = category
		cell.ProductID = id
		cell.HasProduct = true
		cell.Direction = dir
	}

	for i := 1; i < rows-1 && i < 8; i++ {
		setShelf(i, 2, "dairy", 100+i, Left)
	}
	if cols > 9 {
		for i := 1; i < rows-1 && i < 8; i++ {
			setShelf(i, 9, "snacks", 200+i, Right)
		}
	}
	if cols > 6 {
		for i := 2; i < rows-2 && i < 7; i++ {
			setShelf(i, 5, "beverages", 300+i, Left)
			setShelf(i, 6, "bread", 400+i, Right)
		}
	}

	for r := 0; r < rows; r++ {
		if cols > 4 {
			g.Cells[r][4].Capacity = 6
		}
		if cols > 7 {
			g.Cells[r][7].Capacity = 6
		}
	}
	if rows >= 2 {
		for c := 0; c < cols; c++ {
			if g.Cells[rows-2][c].Kind == Aisle {
				g.Cells[rows-2][c].Capacity = 6
			}
		}
	}

	if cols >= 2 {
		g.Cells[rows-1][cols-2].Kind = Checkout
		g.Cells[rows-1][cols-1].Kind = Checkout
	}

	return g
}
