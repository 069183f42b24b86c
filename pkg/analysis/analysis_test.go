package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/piponger/pkg/models"
)

func TestOutliers(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []int
		method Method
	}{
		{
			name:   "mixed scores use z-score upper tail",
			values: []float64{16.7546175, 33.509235, 33.509235, 33.509235, 0, 0, 0},
			want:   []int{1, 2, 3},
			method: MethodZScore,
		},
		{
			name:   "majority of zero scores use modified z-score",
			values: []float64{0, 0, 5.599531, 0, 30.665494},
			want:   []int{2, 4},
			method: MethodModifiedZScore,
		},
		{
			name: "many distinct scores",
			values: []float64{
				50.84486233333333, 50.38194127777778, 49.17669183333334, 49.17669183333334,
				30.918426099999998, 24.803998999999997, 24.784506, 18.19589433333333,
				0, 0, 0, 0,
			},
			want:   []int{0, 1, 2, 3},
			method: MethodZScore,
		},
		{
			name:   "constant scores flag nothing",
			values: []float64{3, 3, 3},
			want:   nil,
			method: MethodModifiedZScore,
		},
		{
			name:   "two distinct values without majority",
			values: []float64{0, 10},
			want:   []int{1},
			method: MethodZScore,
		},
		{
			name:   "empty",
			values: nil,
			want:   nil,
			method: MethodNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, method := Outliers(tt.values)
			assert.Equal(t, tt.method, method)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModifiedZScoreWithSpread(t *testing.T) {
	// median 5, MAD 1: 20 is far out, 5.2 is not
	got := modifiedZScore([]float64{0, 4, 5, 5.2, 20})
	assert.Equal(t, []int{4}, got)
}

func TestCollapse(t *testing.T) {
	assert.InDelta(t, 0.0, collapse([]float64{0, 0, 25}), 1e-9)
	assert.InDelta(t, 12.5, collapse([]float64{0, 25, 12.5}), 1e-9)
	assert.InDelta(t, 12.5, collapse([]float64{0, 25}), 1e-9)
	assert.InDelta(t, 7.0, collapse([]float64{7}), 1e-9)
}

func TestSegment(t *testing.T) {
	e := NewEngine(24)

	tests := []struct {
		hop  string
		want string
		ok   bool
	}{
		{"10.0.21.7", "10.0.21.0", true},
		{"::ffff:10.0.21.7", "10.0.21.0", true},
		{"2001:db8:1:2::5", "2001:db8:1:2::", true},
		{"?", "", false},
		{"router.example.net", "", false},
	}

	for _, tt := range tests {
		got, ok := e.Segment(tt.hop)
		assert.Equal(t, tt.ok, ok, tt.hop)
		assert.Equal(t, tt.want, got, tt.hop)
	}

	wide, ok := NewEngine(16).Segment("10.0.21.7")
	require.True(t, ok)
	assert.Equal(t, "10.0.0.0", wide)
}

func measurement(loss float64, path ...string) models.Measurement {
	return models.Measurement{Path: path, LostPercent: loss}
}

func TestAnalyze(t *testing.T) {
	samples := []Sample{
		{Pinger: "1", Measurements: []models.Measurement{
			measurement(0, "10.0.1.1", "10.0.33.2"),
			measurement(25, "10.0.1.1", "10.0.21.7"),
			measurement(12.5, "10.0.1.1", "?", "10.0.21.9"),
		}},
		{Pinger: "2", Measurements: []models.Measurement{
			measurement(50, "10.0.2.1", "10.0.21.3"),
			measurement(0, "10.0.2.1", "10.0.33.5"),
		}},
	}

	r := NewEngine(24).Analyze(samples)

	wantScores := []Score{
		{Segment: "10.0.21.0", Score: 34.375},
		{Segment: "10.0.2.0", Score: 25},
		{Segment: "10.0.1.0", Score: 12.5},
		{Segment: "10.0.33.0", Score: 0},
	}
	if diff := deep.Equal(r.Scores, wantScores); diff != nil {
		t.Error(diff)
	}

	assert.Equal(t, MethodZScore, r.Method)
	assert.Equal(t, []Score{{Segment: "10.0.21.0", Score: 34.375}}, r.Flagged)

	findings := r.Findings(42)
	require.Len(t, findings, 1)
	assert.Equal(t, int64(42), findings[0].IterationID)
	assert.Equal(t, "10.0.21.0", findings[0].Segment)

	assert.Len(t, r.Graph.Nodes, 4)
	assert.ElementsMatch(t, []Link{
		{Source: "10.0.1.0", Target: "10.0.33.0"},
		{Source: "10.0.1.0", Target: "10.0.21.0"},
		{Source: "10.0.2.0", Target: "10.0.21.0"},
		{Source: "10.0.2.0", Target: "10.0.33.0"},
	}, r.Graph.Links)
}

func losses(pinger string, values ...float64) Sample {
	s := Sample{Pinger: pinger}
	for i, v := range values {
		s.Measurements = append(s.Measurements, measurement(v, fmt.Sprintf("10.0.21.%d", i+1)))
	}

	return s
}

func TestAnalyzeSegmentScore(t *testing.T) {
	tests := []struct {
		name    string
		samples []Sample
		want    float64
	}{
		{
			name:    "majority within one pinger",
			samples: []Sample{losses("a", 0, 0, 0, 50)},
			want:    0,
		},
		{
			name:    "even split within one pinger",
			samples: []Sample{losses("b", 0, 0, 50, 50)},
			want:    25,
		},
		{
			name:    "mean across pingers",
			samples: []Sample{losses("a", 0, 0, 0, 50), losses("b", 0, 0, 50, 50)},
			want:    12.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewEngine(24).Analyze(tt.samples)

			require.Len(t, r.Scores, 1)
			assert.Equal(t, "10.0.21.0", r.Scores[0].Segment)
			assert.InDelta(t, tt.want, r.Scores[0].Score, 1e-9)
		})
	}
}

func TestAnalyzeNothingReported(t *testing.T) {
	r := NewEngine(24).Analyze(nil)

	assert.Empty(t, r.Scores)
	assert.Empty(t, r.Flagged)
	assert.Equal(t, MethodNone, r.Method)
}

func TestFromSessionsSkipsMalformed(t *testing.T) {
	good, err := json.Marshal([]models.Measurement{measurement(5, "10.0.1.1")})
	require.NoError(t, err)

	samples := FromSessions([]models.Session{
		{ID: 1, PingerID: 3, Result: string(good)},
		{ID: 2, PingerID: 4, Result: "[{'path': ['10.0.1.1']"},
	})

	require.Len(t, samples, 1)
	assert.Equal(t, "3", samples[0].Pinger)
	assert.Len(t, samples[0].Measurements, 1)
}

func TestGraphRoundTripAndDOT(t *testing.T) {
	g := NewGraph()
	g.AddNode("10.0.21.0", 34.375)
	g.AddNode("10.0.1.0", 12.5)
	g.AddEdge("10.0.1.0", "10.0.21.0")
	g.AddEdge("10.0.1.0", "10.0.21.0")

	raw, err := g.JSON()
	require.NoError(t, err)
	assert.Contains(t, raw, `"directed":true`)
	assert.Contains(t, raw, `"links":[{"source":"10.0.1.0","target":"10.0.21.0"}]`)

	parsed, err := ParseGraph(raw)
	require.NoError(t, err)
	assert.Len(t, parsed.Nodes, 2)
	assert.Len(t, parsed.Links, 1)

	dot := parsed.DOT("iteration 7", []string{"10.0.21.0"})
	assert.True(t, strings.HasPrefix(dot, `digraph "iteration 7" {`))
	assert.Contains(t, dot, `"10.0.1.0" -> "10.0.21.0";`)
	assert.Contains(t, dot, `fillcolor=red`)

	_, err = ParseGraph("not json")
	require.Error(t, err)
}
