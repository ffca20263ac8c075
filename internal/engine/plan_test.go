package engine

import (
	"strings"
	"testing"

	"fetchall/internal/config"
	"fetchall/internal/fetch"
)

func TestNewPlan(t *testing.T) {
	items := []fetch.WorkItem{{Name: "a", Path: "/r/a"}, {Name: "b", Path: "/r/b"}}
	plan, err := NewPlan("/r", items, config.ConcurrencyMode{MaxWorkers: 2})
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if plan.Len() != 2 || plan.Root != "/r" || plan.Mode.Workers() != 2 {
		t.Fatalf("unexpected plan %+v", plan)
	}

	items[0].Name = "mutated"
	if plan.Items[0].Name != "a" {
		t.Fatalf("plan must not alias the caller's slice")
	}
}

func TestNewPlan_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		items   []fetch.WorkItem
		wantErr string
	}{
		{name: "duplicate", items: []fetch.WorkItem{{Name: "a", Path: "/r/a"}, {Name: "a", Path: "/x/a"}}, wantErr: "duplicate work item a"},
		{name: "empty name", items: []fetch.WorkItem{{Path: "/r/a"}}, wantErr: "empty name"},
		{name: "empty path", items: []fetch.WorkItem{{Name: "a"}}, wantErr: "empty path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan("/r", tt.items, config.ConcurrencyMode{})
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("want error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPlan_LenNil(t *testing.T) {
	var p *Plan
	if p.Len() != 0 {
		t.Fatalf("nil plan must have length 0")
	}
}
