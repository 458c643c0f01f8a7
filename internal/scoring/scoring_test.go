package scoring

import (
	"math"
	"testing"

	"github.com/streamsplice/junction/internal/song"
)

// TestSeedS1 reproduces the worked example: two 120 BPM sections in
// the same key, energy 60 vs 65, no embeddings model.
func TestSeedS1(t *testing.T) {
	a := song.Section{Tempo: 120, KeyString: "C major", Energy: 60}
	b := song.Section{Tempo: 120, KeyString: "C major", Energy: 65}

	got := ScoreSections(a, b, nil)

	if got.Components.Tempo != 100 {
		t.Errorf("tempo = %v, want 100", got.Components.Tempo)
	}
	if got.Components.Key != 100 {
		t.Errorf("key = %v, want 100", got.Components.Key)
	}
	if got.Components.Energy != 95 {
		t.Errorf("energy = %v, want 95", got.Components.Energy)
	}
	if got.Components.Embeddings != 75 {
		t.Errorf("embeddings = %v, want 75 (neutral default)", got.Components.Embeddings)
	}
	if got.Overall != 90.5 {
		t.Errorf("overall = %v, want 90.5", got.Overall)
	}
}

func TestWeightsSumToOverall(t *testing.T) {
	a := song.Section{Tempo: 128, KeyString: "A minor", Energy: 40}
	b := song.Section{Tempo: 140, KeyString: "E major", Energy: 55}
	embeddings := 62.0

	got := ScoreSections(a, b, &embeddings)

	want := WeightTempo*got.Components.Tempo + WeightKey*got.Components.Key +
		WeightEnergy*got.Components.Energy + WeightEmbeddings*got.Components.Embeddings
	want = math.Round(want*10) / 10

	if got.Overall != want {
		t.Fatalf("overall = %v, want %v", got.Overall, want)
	}
	for name, v := range map[string]float64{
		"tempo": got.Components.Tempo, "key": got.Components.Key,
		"energy": got.Components.Energy, "embeddings": got.Components.Embeddings,
	} {
		if v < 0 || v > 100 {
			t.Errorf("%s component out of [0,100]: %v", name, v)
		}
	}
}

func TestTempoMonotonicity(t *testing.T) {
	base := 120.0
	deltas := []float64{0, 2, 6, 11, 25}
	prevScore := math.Inf(1)
	for _, d := range deltas {
		score := tempoSubscore(base, base+d)
		if score > prevScore {
			t.Fatalf("tempo subscore increased as |delta| grew: delta=%v score=%v prev=%v", d, score, prevScore)
		}
		prevScore = score
	}
}

func TestKeySubscoreBuckets(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"C major", "C major", 100},
		{"C major", "C minor", 80},
		{"C major", "G major", 60},
		{"", "C major", 60},
	}
	for _, c := range cases {
		got := keySubscore(c.a, c.b)
		if got != c.want {
			t.Errorf("keySubscore(%q,%q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestEnergySubscoreBuckets(t *testing.T) {
	cases := []struct {
		a, b float64
		want float64
	}{
		{60, 65, 95},
		{60, 68, 87},
		{60, 75, 77.5},
		{10, 90, 50},
	}
	for _, c := range cases {
		got := energySubscore(c.a, c.b)
		if math.Abs(got-c.want) > 1e-9 {
			t.Errorf("energySubscore(%v,%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestCosineEmbeddingsScoreIdentical(t *testing.T) {
	v := []float64{0.1, 0.4, -0.2, 0.9}
	got := CosineEmbeddingsScore(v, v)
	if math.Abs(got-100) > 1e-6 {
		t.Fatalf("identical vectors should score 100, got %v", got)
	}
}

// TestRankCandidatesBreaksTiesByTempo builds two candidates whose
// Overall scores are equal by construction (one trades a perfect
// tempo match for a mismatched key, the other the reverse — both
// weighted at 0.25 so the totals land on the same value) and checks
// the candidate with the higher tempo sub-score sorts first, per
// §4.4's tie-break rule.
func TestRankCandidatesBreaksTiesByTempo(t *testing.T) {
	reference := song.Section{Tempo: 120, KeyString: "C major", Energy: 50}
	embeddings := 60.0

	// d = |120-t|/avg*100 = 50/3 puts t in tempoSubscore's (10,20]
	// bracket, where 80-3*(d-10) evaluates to exactly 60.
	farTempoBPM := 66000.0 / 650.0

	closeTempoSection := song.Section{Tempo: 120, KeyString: "G major", Energy: 50}
	farTempoSection := song.Section{Tempo: farTempoBPM, KeyString: "C major", Energy: 50}

	closeScore := ScoreSections(reference, closeTempoSection, &embeddings)
	farScore := ScoreSections(reference, farTempoSection, &embeddings)
	if closeScore.Overall != farScore.Overall {
		t.Fatalf("test setup: expected equal overall scores, got %v vs %v", closeScore.Overall, farScore.Overall)
	}
	if closeScore.Components.Tempo <= farScore.Components.Tempo {
		t.Fatalf("test setup: expected close candidate's tempo sub-score to be higher, got %v vs %v", closeScore.Components.Tempo, farScore.Components.Tempo)
	}

	candidates := []Candidate{
		{SongID: "far", SectionIndex: 0, Section: farTempoSection, Embeddings: &embeddings},
		{SongID: "close", SectionIndex: 0, Section: closeTempoSection, Embeddings: &embeddings},
	}

	ranked := RankCandidates(reference, candidates)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked candidates, got %d", len(ranked))
	}
	if ranked[0].SongID != "close" {
		t.Fatalf("expected the higher-tempo-subscore candidate first, got %q then %q", ranked[0].SongID, ranked[1].SongID)
	}
}

func TestCosineEmbeddingsScoreMismatchedLength(t *testing.T) {
	got := CosineEmbeddingsScore([]float64{1, 2}, []float64{1})
	if got != neutralEmbeddingsScore {
		t.Fatalf("expected neutral fallback for mismatched lengths, got %v", got)
	}
}
