package probe

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// TraceRequest describes one route discovery over a source port range.
type TraceRequest struct {
	Target     string
	SrcPortMin int
	SrcPortMax int
	DstPort    int
	Delay      int
}

// NPaths is the number of source ports, and so of flows, probed.
func (r TraceRequest) NPaths() int {
	return r.SrcPortMax - r.SrcPortMin
}

// TraceResult is the parsed route discovery output: one leg list per source
// port, in send order.
type TraceResult struct {
	Flows map[string][]Leg `json:"flows"`
}

// Leg is a single probe of a flow. An empty Name marks a probe nobody
// answered.
type Leg struct {
	Name     string   `json:"name"`
	IsLast   bool     `json:"is_last"`
	Sent     Sent     `json:"sent"`
	Received Received `json:"received"`
}

type Sent struct {
	IP  IPHeader  `json:"ip"`
	UDP UDPHeader `json:"udp"`
}

type Received struct {
	IP IPHeader `json:"ip"`
}

type IPHeader struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

type UDPHeader struct {
	SPort int `json:"sport"`
	DPort int `json:"dport"`
}

// DiscoveredPath is a hop path reached from a given source port.
type DiscoveredPath struct {
	SrcPort int
	DstPort int
	Path    []string
}

// ParseTrace decodes raw route discovery output.
func ParseTrace(raw []byte) (*TraceResult, error) {
	var r TraceResult
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTrace, err)
	}

	return &r, nil
}

// HasFlows reports whether at least one flow was recorded.
func (r *TraceResult) HasFlows() bool {
	return len(r.Flows) > 0
}

// SourcePorts returns the flow keys in ascending numeric order.
func (r *TraceResult) SourcePorts() []string {
	keys := make([]string, 0, len(r.Flows))
	for k := range r.Flows {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])

		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}

		return a < b
	})

	return keys
}

// ExtractPath walks the legs in send order and collects the address of every
// answering hop. The walk stops at a leg marked last or once the target itself
// answered; the trailing target hop is dropped. ok is false when the legs
// never reach either stop condition.
func ExtractPath(legs []Leg, target string) (path []string, ok bool) {
	for _, leg := range legs {
		if leg.Name != "" {
			path = append(path, leg.Received.IP.Src)
		}

		reachedTarget := len(path) > 0 && path[len(path)-1] == target

		if leg.IsLast || reachedTarget {
			if len(path) == 0 {
				return nil, false
			}

			if reachedTarget {
				path = path[:len(path)-1]
			}

			return path, true
		}
	}

	return nil, false
}

// DiscoveredPaths returns the terminated path of every flow, ordered by
// source port.
func (r *TraceResult) DiscoveredPaths(target string) []DiscoveredPath {
	var out []DiscoveredPath

	for _, sport := range r.SourcePorts() {
		legs := r.Flows[sport]

		path, ok := ExtractPath(legs, target)
		if !ok {
			continue
		}

		out = append(out, DiscoveredPath{
			SrcPort: legs[0].Sent.UDP.SPort,
			DstPort: legs[0].Sent.UDP.DPort,
			Path:    path,
		})
	}

	return out
}

// HopPath re-derives the path of the flow sent from srcPort, leaving out the
// source's own address and the target's.
func (r *TraceResult) HopPath(srcPort int, target string) ([]string, error) {
	legs, found := r.Flows[strconv.Itoa(srcPort)]
	if !found || len(legs) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownFlow, srcPort)
	}

	source := legs[0].Sent.IP.Src

	path, _ := ExtractPath(legs, target)

	return slices.DeleteFunc(path, func(hop string) bool {
		return hop == source || hop == target
	}), nil
}

// UniquePaths keeps the first entry of each distinct hop sequence.
func UniquePaths(paths []DiscoveredPath) []DiscoveredPath {
	seen := make(map[string]bool, len(paths))

	var out []DiscoveredPath

	for _, p := range paths {
		key := strings.Join(p.Path, ">")
		if seen[key] {
			continue
		}

		seen[key] = true

		out = append(out, p)
	}

	return out
}
