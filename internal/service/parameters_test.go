package service

import (
	"testing"

	"github.com/Harshitk-cp/dialogreply/internal/domain"
	"github.com/Harshitk-cp/dialogreply/internal/graph"
)

func TestBuildParameters(t *testing.T) {
	g := newTestGraph(t)
	agg := NewParameterAggregator(g.store, g.k, g.logger)
	message, author, theme := g.node(), g.node(), g.node()

	tests := []struct {
		name          string
		author, theme domain.Addr
		want          []domain.Addr
	}{
		{"all present", author, theme, []domain.Addr{message, author, theme}},
		{"no author", domain.InvalidAddr, theme, []domain.Addr{message, theme}},
		{"no theme", author, domain.InvalidAddr, []domain.Addr{message, author}},
		{"message only", domain.InvalidAddr, domain.InvalidAddr, []domain.Addr{message}},
		{"author is theme", author, author, []domain.Addr{message, author}},
		{"author is message", message, theme, []domain.Addr{message, theme}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := agg.BuildParameters(g.ctx, message, tt.author, tt.theme)
			if err != nil {
				t.Fatalf("BuildParameters: %v", err)
			}
			got, err := graph.Members(g.ctx, g.store, params)
			if err != nil {
				t.Fatalf("Members: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d members, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("member %d = %s, want %s", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuildParameters_FreshBundleEachCall(t *testing.T) {
	g := newTestGraph(t)
	agg := NewParameterAggregator(g.store, g.k, g.logger)
	message := g.node()

	first, err := agg.BuildParameters(g.ctx, message, domain.InvalidAddr, domain.InvalidAddr)
	if err != nil {
		t.Fatalf("BuildParameters: %v", err)
	}
	second, err := agg.BuildParameters(g.ctx, message, domain.InvalidAddr, domain.InvalidAddr)
	if err != nil {
		t.Fatalf("BuildParameters: %v", err)
	}
	if first == second {
		t.Fatal("expected a new parameters node per call")
	}
}

func TestBuildParameters_Roles(t *testing.T) {
	g := newTestGraph(t)
	agg := NewParameterAggregator(g.store, g.k, g.logger)
	message, author, theme := g.node(), g.node(), g.node()

	tests := []struct {
		name                  string
		author, theme         domain.Addr
		wantAuthor, wantTheme domain.Addr
	}{
		{"all present", author, theme, author, theme},
		{"no author", domain.InvalidAddr, theme, domain.InvalidAddr, theme},
		{"author is theme", author, author, author, author},
		{"author is message", message, theme, message, theme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params, err := agg.BuildParameters(g.ctx, message, tt.author, tt.theme)
			if err != nil {
				t.Fatalf("BuildParameters: %v", err)
			}
			for _, role := range []struct {
				rel  domain.Addr
				want domain.Addr
			}{
				{g.k.Rrel1, message},
				{g.k.Rrel2, tt.wantAuthor},
				{g.k.Rrel3, tt.wantTheme},
			} {
				got, err := graph.RoleTarget(g.ctx, g.store, params, role.rel)
				if err != nil {
					t.Fatalf("RoleTarget: %v", err)
				}
				if got != role.want {
					t.Errorf("role %s = %s, want %s", role.rel, got, role.want)
				}
			}
		})
	}
}
