package state

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

type LinkCfg struct {
	A      RouterId `yaml:"a"`
	B      RouterId `yaml:"b"`
	Weight Metric   `yaml:"weight"`
}

// StepCfg is a single driver action. Exactly one field must be set.
type StepCfg struct {
	Add       RouterId   `yaml:"add,omitempty"`
	Remove    RouterId   `yaml:"remove,omitempty"`
	Link      *LinkCfg   `yaml:"link,omitempty"`
	Unlink    []RouterId `yaml:"unlink,omitempty"`
	Propagate RouterId   `yaml:"propagate,omitempty"`
	Converge  *int       `yaml:"converge,omitempty"` // maximum rounds, 0 uses MaxConvergeRound
}

type StepKind string

const (
	StepAdd       StepKind = "add"
	StepRemove    StepKind = "remove"
	StepLink      StepKind = "link"
	StepUnlink    StepKind = "unlink"
	StepPropagate StepKind = "propagate"
	StepConverge  StepKind = "converge"
)

func (s StepCfg) Kind() (StepKind, error) {
	kinds := make([]StepKind, 0, 1)
	if s.Add != "" {
		kinds = append(kinds, StepAdd)
	}
	if s.Remove != "" {
		kinds = append(kinds, StepRemove)
	}
	if s.Link != nil {
		kinds = append(kinds, StepLink)
	}
	if s.Unlink != nil {
		kinds = append(kinds, StepUnlink)
	}
	if s.Propagate != "" {
		kinds = append(kinds, StepPropagate)
	}
	if s.Converge != nil {
		kinds = append(kinds, StepConverge)
	}
	if len(kinds) != 1 {
		return "", fmt.Errorf("step must contain exactly one action, found %v", kinds)
	}
	return kinds[0], nil
}

// ScenarioCfg describes an initial topology and a sequence of driver steps
type ScenarioCfg struct {
	Routers       []RouterId `yaml:"routers"`
	DefaultWeight *Metric    `yaml:"default_weight,omitempty"` // weight of links generated from Graph, DefaultWeight if unset
	Graph         []string   `yaml:"graph,omitempty"`
	Links         []LinkCfg  `yaml:"links,omitempty"`
	Steps         []StepCfg  `yaml:"steps,omitempty"`
}

// GetLinks expands Graph using DefaultWeight, then applies explicit Links on top.
// The result contains one entry per unordered pair, with A < B.
func (c *ScenarioCfg) GetLinks() ([]LinkCfg, error) {
	weight := DefaultWeight
	if c.DefaultWeight != nil {
		weight = *c.DefaultWeight
	}
	nodes := make([]string, 0, len(c.Routers))
	for _, r := range c.Routers {
		nodes = append(nodes, string(r))
	}
	pairs, err := ParseGraph(c.Graph, nodes)
	if err != nil {
		return nil, err
	}
	weights := make(map[Pair[RouterId, RouterId]]Metric)
	for _, p := range pairs {
		weights[p] = weight
	}
	for _, l := range c.Links {
		weights[MakeSortedPair(l.A, l.B)] = l.Weight
	}
	keys := make([]Pair[RouterId, RouterId], 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	SortPairs(keys)
	links := make([]LinkCfg, 0, len(keys))
	for _, k := range keys {
		links = append(links, LinkCfg{A: k.V1, B: k.V2, Weight: weights[k]})
	}
	return links, nil
}

func ParseScenario(data []byte) (*ScenarioCfg, error) {
	var cfg ScenarioCfg
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := ScenarioValidator(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ReadScenario(path string) (*ScenarioCfg, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := ParseScenario(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func parseSymbolList(s string, validSymbols []string) ([]string, error) {
	spl := strings.Split(strings.TrimSpace(s), ",")
	line := make([]string, 0)
	for _, s := range spl {
		x := strings.TrimSpace(s)
		if x == "" {
			continue
		}
		if !slices.Contains(validSymbols, x) {
			return nil, fmt.Errorf(`%s is not a valid router/group`, x)
		}
		line = append(line, x)
	}
	if len(line) == 0 {
		return nil, fmt.Errorf(`router/group list must not be empty`)
	}
	slices.Sort(line)
	return line, nil
}

// ParseGraph expands graph lines into the set of linked router pairs. nodes lists every router id.
//
// A line "name = x, y, ..." defines a group whose members are routers or other groups. Any other line
// lists routers or groups that are linked to each other: "g1, g2, 10.0.0.6" links every member of g1 to every
// member of g2 and to 10.0.0.6, but not the members of g1 among themselves. Repeating a group ("g1, g1") links
// its members to each other.
func ParseGraph(graph []string, nodes []string) ([]Pair[RouterId, RouterId], error) {
	defs := make(map[string]string)
	links := make([]string, 0)
	for _, line := range graph {
		line = strings.ToLower(strings.TrimSpace(line))
		name, members, isDef := strings.Cut(line, "=")
		if !isDef {
			links = append(links, line)
			continue
		}
		if strings.Contains(members, "=") {
			return nil, fmt.Errorf("invalid graph: %s. group definition must contain one '='", line)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("invalid graph: %s. group name must not be empty", line)
		}
		if slices.Contains(nodes, name) {
			return nil, fmt.Errorf("group name must not be a router id: %s", name)
		}
		if _, ok := defs[name]; ok {
			return nil, fmt.Errorf("duplicate group name: %s", name)
		}
		defs[name] = members
	}

	symbols := append(slices.Clone(nodes), slices.Collect(maps.Keys(defs))...)
	g := &groupSet{
		nodes:    nodes,
		members:  make(map[string][]string, len(defs)),
		expanded: make(map[string][]RouterId, len(defs)),
	}
	for _, name := range slices.Sorted(maps.Keys(defs)) {
		members, err := parseSymbolList(defs[name], symbols)
		if err != nil {
			return nil, err
		}
		g.members[name] = members
	}
	for _, name := range slices.Sorted(maps.Keys(defs)) {
		if _, err := g.expand(name); err != nil {
			return nil, err
		}
	}

	pairs := make([]Pair[RouterId, RouterId], 0)
	for _, line := range links {
		names, err := parseSymbolList(line, symbols)
		if err != nil {
			return nil, err
		}
		if len(names) < 2 {
			return nil, fmt.Errorf("invalid pairing, %v", names)
		}
		for i, a := range names {
			for _, b := range names[i+1:] {
				xs, _ := g.expand(a)
				ys, _ := g.expand(b)
				for _, x := range xs {
					for _, y := range ys {
						if x != y {
							pairs = append(pairs, MakeSortedPair(x, y))
						}
					}
				}
			}
		}
	}
	SortPairs(pairs)
	return slices.Compact(pairs), nil
}

// groupSet resolves group names down to router ids, memoising each group
type groupSet struct {
	nodes    []string
	members  map[string][]string
	expanded map[string][]RouterId
	path     []string
}

func (g *groupSet) expand(sym string) ([]RouterId, error) {
	if slices.Contains(g.nodes, sym) {
		return []RouterId{RouterId(sym)}, nil
	}
	if ids, ok := g.expanded[sym]; ok {
		return ids, nil
	}
	if slices.Contains(g.path, sym) {
		cycle := slices.Clone(g.path[slices.Index(g.path, sym):])
		slices.Sort(cycle)
		return nil, fmt.Errorf("cycle detected in graph: %v", cycle)
	}
	g.path = append(g.path, sym)
	ids := make([]RouterId, 0)
	for _, m := range g.members[sym] {
		sub, err := g.expand(m)
		if err != nil {
			return nil, err
		}
		ids = append(ids, sub...)
	}
	g.path = g.path[:len(g.path)-1]
	slices.Sort(ids)
	ids = slices.Compact(ids)
	g.expanded[sym] = ids
	return ids, nil
}
