package engine

import (
	"errors"
	"fmt"

	"fetchall/internal/config"
	"fetchall/internal/fetch"
)

// Plan is the immutable work set of one run.
type Plan struct {
	Root  string
	Items []fetch.WorkItem
	Mode  config.ConcurrencyMode
}

func NewPlan(root string, items []fetch.WorkItem, mode config.ConcurrencyMode) (*Plan, error) {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.Name == "" {
			return nil, errors.New("work item has an empty name")
		}
		if it.Path == "" {
			return nil, fmt.Errorf("work item %s has an empty path", it.Name)
		}
		if _, dup := seen[it.Name]; dup {
			return nil, fmt.Errorf("duplicate work item %s", it.Name)
		}
		seen[it.Name] = struct{}{}
	}

	return &Plan{
		Root:  root,
		Items: append([]fetch.WorkItem(nil), items...),
		Mode:  mode,
	}, nil
}

// Len returns the number of work items.
func (p *Plan) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Items)
}
