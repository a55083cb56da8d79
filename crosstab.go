// Package crosstab builds multi-dimensional aggregation cubes.
// Every subtotal and the grand total, computed in one pass.
//
// Usage:
//
//	import "github.com/spektr-org/crosstab/engine"
//
//	reg := engine.NewRegistry[Invoice]()
//	engine.RegisterBuiltins(reg)
//	reg.RegisterMapper(engine.NewMapper("year", func(i Invoice) any { return i.Date.Year() }, nil))
//	reg.RegisterMapper(engine.NewMapper("amount", func(i Invoice) any { return i.Amount }, nil))
//
//	f, err := reg.Build(engine.Request{
//	    Group:  []string{"year"},
//	    Map:    []string{"amount"},
//	    Reduce: []string{"sum"},
//	})
//	grid, err := f.Grid(reg, invoices)
//	cell, err := grid.At(engine.Real(2020))
//
// Records loaded from CSV go through the dataset and schema packages;
// the render package prints a grid as a table, CSV or JSON.
// The engine never calls any external service.
package crosstab
