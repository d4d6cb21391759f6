// Package mapfile loads a gridworld.Grid from a text map-file format:
// rows of single-character symbols, with a companion symbol table mapping
// each character to a cell configuration.
package mapfile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"groceria/gridworld"
)

// SymbolSpec is one symbol's cell configuration, as decoded from the
// companion symbol table.
type SymbolSpec struct {
	Type      string `mapstructure:"type"`
	Capacity  int    `mapstructure:"capacity"`
	Category  string `mapstructure:"category"`
	ProductID int    `mapstructure:"product_id"`
	Direction string `mapstructure:"direction"`
}

// SymbolTable maps a single-character symbol to its cell configuration.
type SymbolTable map[string]SymbolSpec

// TopologyError reports a malformed map: an unrecognized symbol or a grid
// with no Entrance cell. Either aborts grid construction.
type TopologyError struct {
	Reason string
}

func (e *TopologyError) Error() string { return "mapfile: " + e.Reason }

// LoadSymbolTable reads a YAML symbol table from path: a flat mapping of
// symbol to {type, capacity?, category?, product_id?, direction?}.
func LoadSymbolTable(path string) (SymbolTable, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("mapfile: reading symbol table: %w", err)
	}

	table := SymbolTable{}
	if err := vp.Unmarshal(&table); err != nil {
		return nil, fmt.Errorf("mapfile: decoding symbol table: %w", err)
	}
	return table, nil
}

func parseKind(t string) (gridworld.Kind, bool) {
	switch strings.ToUpper(t) {
	case "AISLE":
		return gridworld.Aisle, true
	case "SHELF":
		return gridworld.Shelf, true
	case "CHECKOUT":
		return gridworld.Checkout, true
	case "ENTRANCE":
		return gridworld.Entrance, true
	case "EXIT":
		return gridworld.Exit, true
	case "OBSTACLE":
		return gridworld.Obstacle, true
	default:
		return gridworld.Aisle, false
	}
}

func parseDirection(d string) gridworld.Direction {
	switch strings.ToUpper(d) {
	case "UP":
		return gridworld.Up
	case "DOWN":
		return gridworld.Down
	case "LEFT":
		return gridworld.Left
	case "RIGHT":
		return gridworld.Right
	default:
		return gridworld.None
	}
}

// LoadFromFile reads the map-file at path, consulting table for each
// symbol's meaning, and returns the grid it describes. Blank lines and
// lines beginning with '#' are skipped; short lines are padded with
// default Aisle cells out to the widest row.
func LoadFromFile(path string, table SymbolTable) (*gridworld.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapfile: opening map file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mapfile: reading map file: %w", err)
	}
	if len(lines) == 0 {
		return nil, &TopologyError{Reason: "map file has no content rows"}
	}

	cols := 0
	for _, ln := range lines {
		if len(ln) > cols {
			cols = len(ln)
		}
	}

	grid := gridworld.NewGrid(len(lines), cols)
	for r, ln := range lines {
		for c := 0; c < cols; c++ {
			if c >= len(ln) {
				continue // default Aisle cell from NewGrid is left in place
			}
			sym := string(ln[c])
			spec, ok := table[sym]
			if !ok {
				return nil, &TopologyError{Reason: fmt.Sprintf("unknown symbol %q at row %d col %d", sym, r, c)}
			}
			if err := applySpec(grid, r, c, spec); err != nil {
				return nil, err
			}
		}
	}

	if _, ok := grid.FindKind(gridworld.Entrance); !ok {
		return nil, &TopologyError{Reason: "map has no ENTRANCE cell"}
	}
	return grid, nil
}

func applySpec(grid *gridworld.Grid, row, col int, spec SymbolSpec) error {
	kind, ok := parseKind(spec.Type)
	if !ok {
		return &TopologyError{Reason: fmt.Sprintf("unrecognized cell type %q at row %d col %d", spec.Type, row, col)}
	}

	cell := grid.Cell(gridworld.Position{Row: row, Col: col})
	cell.Kind = kind
	switch kind {
	case gridworld.Aisle:
		cell.Capacity = spec.Capacity
		if cell.Capacity <= 0 {
			cell.Capacity = 4
		}
	case gridworld.Shelf:
		cell.Category = spec.Category
		cell.ProductID = spec.ProductID
		cell.HasProduct = spec.Category != ""
		cell.Direction = parseDirection(spec.Direction)
	}
	return nil
}
