package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/batchledger/pkg/domain/entities"
)

// RecipeGraph is the component-of relation as an adjacency map. It is built
// from one batched read of all edges and then queried in memory.
type RecipeGraph struct {
	children map[entities.RecipeID][]entities.RecipeID
	parents  map[entities.RecipeID][]entities.RecipeID
	edges    map[[2]entities.RecipeID]entities.ComponentEdge
	dups     []entities.ComponentEdge
}

// GraphValidationResult contains the results of a whole-graph audit
type GraphValidationResult struct {
	HasCycles      bool
	CyclePaths     [][]entities.RecipeID
	DuplicateEdges []entities.ComponentEdge
	TooDeep        []entities.RecipeID
	Errors         []error
}

// NewRecipeGraph builds a graph from component edges
func NewRecipeGraph(edges []entities.ComponentEdge) *RecipeGraph {
	g := &RecipeGraph{
		children: make(map[entities.RecipeID][]entities.RecipeID),
		parents:  make(map[entities.RecipeID][]entities.RecipeID),
		edges:    make(map[[2]entities.RecipeID]entities.ComponentEdge, len(edges)),
	}
	for _, e := range edges {
		g.addEdge(e)
	}
	return g
}

func (g *RecipeGraph) addEdge(e entities.ComponentEdge) {
	key := [2]entities.RecipeID{e.ParentID, e.ChildID}
	if _, exists := g.edges[key]; exists {
		g.dups = append(g.dups, e)
		return
	}
	g.edges[key] = e
	g.children[e.ParentID] = append(g.children[e.ParentID], e.ChildID)
	g.parents[e.ChildID] = append(g.parents[e.ChildID], e.ParentID)
}

// HasEdge reports whether parent directly contains child
func (g *RecipeGraph) HasEdge(parent, child entities.RecipeID) bool {
	_, ok := g.edges[[2]entities.RecipeID{parent, child}]
	return ok
}

// Children returns the direct components of a recipe
func (g *RecipeGraph) Children(id entities.RecipeID) []entities.RecipeID {
	return g.children[id]
}

// Reachable searches from `from` along component edges and returns the path
// to `to` if there is one
func (g *RecipeGraph) Reachable(from, to entities.RecipeID) ([]entities.RecipeID, bool) {
	visited := make(map[entities.RecipeID]bool)
	var path []entities.RecipeID

	var dfs func(current entities.RecipeID) bool
	dfs = func(current entities.RecipeID) bool {
		path = append(path, current)
		if current == to {
			return true
		}
		visited[current] = true
		for _, child := range g.children[current] {
			if !visited[child] && dfs(child) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	if dfs(from) {
		return path, true
	}
	return nil, false
}

// Height is the number of recipes on the longest downward chain starting at
// id. A recipe with no components has height 1.
func (g *RecipeGraph) Height(id entities.RecipeID) int {
	return g.longest(id, g.children, make(map[entities.RecipeID]int), make(map[entities.RecipeID]bool))
}

// Depth is the number of recipes on the longest upward chain ending at id.
// A recipe nobody uses has depth 1.
func (g *RecipeGraph) Depth(id entities.RecipeID) int {
	return g.longest(id, g.parents, make(map[entities.RecipeID]int), make(map[entities.RecipeID]bool))
}

// longest walks adj from id. onStack stops the walk on a corrupt, cyclic
// graph instead of recursing forever.
func (g *RecipeGraph) longest(
	id entities.RecipeID,
	adj map[entities.RecipeID][]entities.RecipeID,
	memo map[entities.RecipeID]int,
	onStack map[entities.RecipeID]bool,
) int {
	if v, ok := memo[id]; ok {
		return v
	}
	onStack[id] = true
	best := 0
	for _, next := range adj[id] {
		if onStack[next] {
			continue
		}
		if h := g.longest(next, adj, memo, onStack); h > best {
			best = h
		}
	}
	onStack[id] = false
	memo[id] = best + 1
	return best + 1
}

// ValidateEdge checks that adding parent -> child keeps the graph acyclic and
// within limit levels. It does not modify the graph.
func (g *RecipeGraph) ValidateEdge(parent, child entities.RecipeID, limit int) error {
	if parent == child {
		return &entities.StructuralError{Rule: entities.RuleSelfReference, ParentID: parent, ChildID: child}
	}
	if g.HasEdge(parent, child) {
		return &entities.StructuralError{Rule: entities.RuleDuplicateComponent, ParentID: parent, ChildID: child}
	}
	if path, found := g.Reachable(child, parent); found {
		cycle := append([]entities.RecipeID{parent}, path...)
		return &entities.StructuralError{Rule: entities.RuleCycle, ParentID: parent, ChildID: child, Path: cycle}
	}

	depth := g.Depth(parent) + g.Height(child)
	if depth > limit {
		return &entities.StructuralError{
			Rule:     entities.RuleDepthExceeded,
			ParentID: parent,
			ChildID:  child,
			Depth:    depth,
			Limit:    limit,
		}
	}
	return nil
}

// Validate audits the whole graph for cycles and over-deep chains
func (g *RecipeGraph) Validate(limit int) *GraphValidationResult {
	result := &GraphValidationResult{
		CyclePaths:     g.detectCycles(),
		DuplicateEdges: g.dups,
	}
	result.HasCycles = len(result.CyclePaths) > 0

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, &entities.StructuralError{
			Rule:     entities.RuleCycle,
			ParentID: cycle[0],
			ChildID:  cycle[1],
			Path:     cycle,
		})
	}

	for _, dup := range result.DuplicateEdges {
		result.Errors = append(result.Errors, &entities.StructuralError{
			Rule:     entities.RuleDuplicateComponent,
			ParentID: dup.ParentID,
			ChildID:  dup.ChildID,
		})
	}

	if !result.HasCycles {
		for _, id := range g.nodes() {
			if len(g.parents[id]) > 0 {
				continue
			}
			if h := g.Height(id); h > limit {
				result.TooDeep = append(result.TooDeep, id)
				result.Errors = append(result.Errors, &entities.StructuralError{
					Rule:     entities.RuleDepthExceeded,
					ParentID: id,
					Depth:    h,
					Limit:    limit,
					Detail:   fmt.Sprintf("recipe %s nests %d levels deep, limit is %d", id, h, limit),
				})
			}
		}
	}

	return result
}

// nodes returns every recipe that appears on an edge, sorted
func (g *RecipeGraph) nodes() []entities.RecipeID {
	seen := make(map[entities.RecipeID]bool)
	for key := range g.edges {
		seen[key[0]] = true
		seen[key[1]] = true
	}
	out := make([]entities.RecipeID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// detectCycles uses DFS to find cycles in the component structure
func (g *RecipeGraph) detectCycles() [][]entities.RecipeID {
	visited := make(map[entities.RecipeID]bool)
	recursionStack := make(map[entities.RecipeID]bool)
	cycles := make([][]entities.RecipeID, 0)

	for _, id := range g.nodes() {
		if !visited[id] {
			g.dfsDetectCycle(id, visited, recursionStack, nil, &cycles)
		}
	}
	return cycles
}

func (g *RecipeGraph) dfsDetectCycle(
	current entities.RecipeID,
	visited map[entities.RecipeID]bool,
	recursionStack map[entities.RecipeID]bool,
	path []entities.RecipeID,
	cycles *[][]entities.RecipeID,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range g.children[current] {
		if !visited[child] {
			g.dfsDetectCycle(child, visited, recursionStack, path, cycles)
		} else if recursionStack[child] {
			for i, id := range path {
				if id == child {
					cycle := append([]entities.RecipeID{}, path[i:]...)
					cycle = append(cycle, child)
					*cycles = append(*cycles, cycle)
					break
				}
			}
		}
	}

	recursionStack[current] = false
}
