// Package scoring implements the Compatibility Scorer: a pure
// function from a pair of sections to a weighted score and its
// component breakdown.
package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/streamsplice/junction/internal/song"
)

// Fixed weights from the data model; they sum to 1.0.
const (
	WeightTempo      = 0.25
	WeightKey        = 0.25
	WeightEnergy     = 0.15
	WeightEmbeddings = 0.35

	// neutralEmbeddingsScore substitutes for embeddingsScore when no
	// learned-embedding model is available.
	neutralEmbeddingsScore = 75.0
)

// Components holds the four sub-scores, each in [0,100].
type Components struct {
	Tempo      float64
	Key        float64
	Energy     float64
	Embeddings float64
}

// Score is the transient value produced on demand by Score().
type Score struct {
	Overall    float64
	Components Components
}

// ScoreSections computes the compatibility between two sections.
// embeddingsScore is a pointer so that "no embeddings model" (nil) is
// distinguishable from "embeddings model reported 0".
func ScoreSections(a, b song.Section, embeddingsScore *float64) Score {
	embeddings := neutralEmbeddingsScore
	if embeddingsScore != nil {
		embeddings = *embeddingsScore
	}

	c := Components{
		Tempo:      tempoSubscore(a.Tempo, b.Tempo),
		Key:        keySubscore(a.KeyString, b.KeyString),
		Energy:     energySubscore(a.Energy, b.Energy),
		Embeddings: embeddings,
	}

	overall := WeightTempo*c.Tempo + WeightKey*c.Key + WeightEnergy*c.Energy + WeightEmbeddings*c.Embeddings
	overall = math.Round(overall*10) / 10

	return Score{Overall: overall, Components: c}
}

// tempoSubscore implements the piecewise-linear tempo tolerance curve
// from §4.4: small BPM drift is inaudible, a 10% gap is perceptible,
// beyond 20% the songs are in different tempo classes.
func tempoSubscore(bpmA, bpmB float64) float64 {
	avg := (bpmA + bpmB) / 2
	if avg == 0 {
		return 0
	}
	d := math.Abs(bpmA-bpmB) / avg * 100

	switch {
	case d <= 5:
		return 100
	case d <= 10:
		return 90 - 2*(d-5)
	case d <= 20:
		return 80 - 3*(d-10)
	default:
		return math.Max(0, 50-2*(d-20))
	}
}

// keySubscore is deliberately coarse: identical full key scores 100,
// same root with a different mode scores 80, anything else scores 60.
// This numeric contract is the test surface (§4.4); no
// circle-of-fifths refinement is applied.
func keySubscore(keyA, keyB string) float64 {
	a := strings.TrimSpace(strings.ToLower(keyA))
	b := strings.TrimSpace(strings.ToLower(keyB))
	if a == "" || b == "" {
		return 60
	}
	if a == b {
		return 100
	}
	rootA, _ := splitKey(a)
	rootB, _ := splitKey(b)
	if rootA != "" && rootA == rootB {
		return 80
	}
	return 60
}

// splitKey splits a "<root> <mode>" key string, e.g. "c major", into
// its root and mode. Keys without a mode suffix return an empty mode.
func splitKey(key string) (root, mode string) {
	parts := strings.Fields(key)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// Candidate is one section being considered as the counterpart to a
// fixed reference section, identified by its owning song so a ranked
// result can be traced back to a concrete (song, section) pair.
type Candidate struct {
	SongID       string
	SectionIndex int
	Section      song.Section
	Embeddings   *float64
}

// RankedCandidate is a Candidate together with the Score it earned
// against the reference section it was ranked against.
type RankedCandidate struct {
	Candidate
	Score Score
}

// RankCandidates scores every candidate against reference and returns
// them best-first: descending Overall score, ties broken by
// descending tempo sub-score (§4.4's tie-break rule).
func RankCandidates(reference song.Section, candidates []Candidate) []RankedCandidate {
	ranked := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedCandidate{Candidate: c, Score: ScoreSections(reference, c.Section, c.Embeddings)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score.Overall != ranked[j].Score.Overall {
			return ranked[i].Score.Overall > ranked[j].Score.Overall
		}
		return ranked[i].Score.Components.Tempo > ranked[j].Score.Components.Tempo
	})
	return ranked
}

// energySubscore implements the piecewise energy-difference curve
// from §4.4 over the 0-100 energy scale.
func energySubscore(energyA, energyB float64) float64 {
	e := math.Abs(energyA - energyB)
	switch {
	case e <= 5:
		return 100
	case e <= 10:
		return 90 - (e - 5)
	case e <= 20:
		return 85 - 1.5*(e-10)
	default:
		return math.Max(50, 70-(e-20))
	}
}
