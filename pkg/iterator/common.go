package iterator

import (
	"queryproc/pkg/tuple"
)

// ForEachPage calls processFunc for every page of an open operator until the
// stream ends or processFunc returns an error.
func ForEachPage(op Operator, processFunc func(*tuple.Page) error) error {
	for {
		page, err := op.Next()
		if err != nil {
			return err
		}
		if page == nil {
			return nil
		}
		if err := processFunc(page); err != nil {
			return err
		}
	}
}

// ForEach calls processFunc for every tuple of an open operator.
func ForEach(op Operator, processFunc func(*tuple.Tuple) error) error {
	return ForEachPage(op, func(p *tuple.Page) error {
		for _, t := range p.Tuples() {
			if err := processFunc(t); err != nil {
				return err
			}
		}
		return nil
	})
}

// Collect drains an open operator into a slice.
func Collect(op Operator) ([]*tuple.Tuple, error) {
	var result []*tuple.Tuple
	err := ForEach(op, func(t *tuple.Tuple) error {
		result = append(result, t)
		return nil
	})
	return result, err
}

// CollectPages drains an open operator, keeping page boundaries.
func CollectPages(op Operator) ([]*tuple.Page, error) {
	var pages []*tuple.Page
	err := ForEachPage(op, func(p *tuple.Page) error {
		pages = append(pages, p)
		return nil
	})
	return pages, err
}

// Count drains an open operator and returns the number of tuples.
func Count(op Operator) (int, error) {
	n := 0
	err := ForEachPage(op, func(p *tuple.Page) error {
		n += p.Len()
		return nil
	})
	return n, err
}

// Run opens op, collects its output and closes it. The first error wins.
func Run(op Operator) ([]*tuple.Tuple, error) {
	if err := op.Open(); err != nil {
		_ = op.Close()
		return nil, err
	}
	result, err := Collect(op)
	if cerr := op.Close(); err == nil {
		err = cerr
	}
	return result, err
}
