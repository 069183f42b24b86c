// Package analysis turns the measurements reported in an iteration into
// per-segment loss scores, flags the outlying segments and builds the
// segment topology graph.
package analysis

import (
	"encoding/json"
	"net/netip"
	"sort"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/carverauto/piponger/pkg/models"
)

// UnknownHop is the placeholder for a hop that did not answer.
const UnknownHop = "?"

const (
	defaultPrefixLen = 24
	ipv6PrefixLen    = 64
)

// Sample is everything one pinger reported in an iteration.
type Sample struct {
	Pinger       string
	Measurements []models.Measurement
}

// Score is the loss estimate of one network segment.
type Score struct {
	Segment string  `json:"segment"`
	Score   float64 `json:"score"`
}

// Result is the outcome of analysing one iteration.
type Result struct {
	// Scores holds every segment, highest score first.
	Scores []Score
	// Flagged holds the outlying segments, highest score first.
	Flagged []Score
	Method  Method
	Graph   *Graph
}

// Engine aggregates samples into segment scores.
type Engine struct {
	prefixLen int
}

// NewEngine creates an Engine truncating IPv4 hops to prefixLen bits. IPv6
// hops are truncated to /64.
func NewEngine(prefixLen int) *Engine {
	if prefixLen <= 0 || prefixLen > 32 {
		prefixLen = defaultPrefixLen
	}

	return &Engine{prefixLen: prefixLen}
}

// Segment returns the network address hop belongs to. ok is false for the
// unknown-hop placeholder and anything that is not an IP address.
func (e *Engine) Segment(hop string) (string, bool) {
	if hop == UnknownHop || hop == "" {
		return "", false
	}

	addr, err := netip.ParseAddr(hop)
	if err != nil {
		return "", false
	}

	bits := e.prefixLen
	if addr.Is6() && !addr.Is4In6() {
		bits = ipv6PrefixLen
	}

	prefix, err := addr.Unmap().Prefix(bits)
	if err != nil {
		return "", false
	}

	return prefix.Addr().String(), true
}

// FromSessions decodes the stored results of finished sessions. A session
// whose result cannot be decoded is logged and left out.
func FromSessions(sessions []models.Session) []Sample {
	out := make([]Sample, 0, len(sessions))

	for _, s := range sessions {
		var ms []models.Measurement

		if err := json.Unmarshal([]byte(s.Result), &ms); err != nil {
			log.Error("skipping undecodable session result", "session", s.ID, "pinger", s.PingerID, "error", err)

			continue
		}

		out = append(out, Sample{Pinger: strconv.FormatInt(s.PingerID, 10), Measurements: ms})
	}

	return out
}

// Analyze scores every segment seen in samples and classifies the scores.
//
// Within one pinger a segment's loss is the value shared by a strict majority
// of its samples, or their mean when no value has a majority. Across pingers
// the segment score is the mean of the per-pinger estimates.
func (e *Engine) Analyze(samples []Sample) *Result {
	perSegment := make(map[string][]float64)
	graph := NewGraph()

	for _, sample := range samples {
		local := make(map[string][]float64)

		for _, m := range sample.Measurements {
			prev := ""

			for _, hop := range m.Path {
				seg, ok := e.Segment(hop)
				if !ok {
					prev = ""

					continue
				}

				local[seg] = append(local[seg], m.LostPercent)

				if prev != "" && prev != seg {
					graph.AddEdge(prev, seg)
				}

				prev = seg
			}
		}

		for seg, values := range local {
			perSegment[seg] = append(perSegment[seg], collapse(values))
		}
	}

	scores := make([]Score, 0, len(perSegment))
	for seg, estimates := range perSegment {
		scores = append(scores, Score{Segment: seg, Score: mean(estimates)})
	}

	sortScores(scores)

	values := make([]float64, len(scores))
	for i, s := range scores {
		values[i] = s.Score
		graph.AddNode(s.Segment, s.Score)
	}

	idx, method := Outliers(values)

	flagged := make([]Score, 0, len(idx))
	for _, i := range idx {
		flagged = append(flagged, scores[i])
	}

	return &Result{
		Scores:  scores,
		Flagged: flagged,
		Method:  method,
		Graph:   graph,
	}
}

// Findings converts the flagged segments into records for iterationID.
func (r *Result) Findings(iterationID int64) []models.Finding {
	out := make([]models.Finding, len(r.Flagged))

	for i, f := range r.Flagged {
		out[i] = models.Finding{IterationID: iterationID, Segment: f.Segment, Score: f.Score}
	}

	return out
}

// collapse reduces one pinger's samples for a segment to a single estimate.
func collapse(values []float64) float64 {
	if v, ok := majority(values); ok {
		return v
	}

	return mean(values)
}

// majority returns the value held by strictly more than half of values.
func majority(values []float64) (float64, bool) {
	counts := make(map[float64]int, len(values))

	for _, v := range values {
		counts[v]++

		if counts[v]*2 > len(values) {
			return v, true
		}
	}

	return 0, false
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func sortScores(scores []Score) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}

		return scores[i].Segment < scores[j].Segment
	})
}
