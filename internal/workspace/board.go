package workspace

// highGapScore is the lowest gap score that counts as a high-gap idea.
const highGapScore = 7

// Quadrant labels a cell of the strategy matrix.
type Quadrant string

const (
	QuadrantFrontier     Quadrant = "frontier"     // high gap, industrial
	QuadrantBreakthrough Quadrant = "breakthrough" // high gap, academic
	QuadrantIncremental  Quadrant = "incremental"  // low gap, industrial
	QuadrantFoundational Quadrant = "foundational" // low gap, academic
)

// Column is one stage of the pipeline board.
type Column struct {
	Stage    Stage     `json:"stage"`
	Projects []Project `json:"projects"`
}

// ByStage returns the projects in stage, preserving order.
func ByStage(projects []Project, stage Stage) []Project {
	out := []Project{}
	for _, p := range projects {
		if p.Stage == stage {
			out = append(out, p)
		}
	}
	return out
}

// Board groups projects into one column per stage, in pipeline order. Empty
// stages are included.
func Board(projects []Project) []Column {
	cols := make([]Column, 0, len(Stages))
	for _, stage := range Stages {
		cols = append(cols, Column{Stage: stage, Projects: ByStage(projects, stage)})
	}
	return cols
}

// StageCounts returns the number of projects per stage.
func StageCounts(projects []Project) map[Stage]int {
	counts := make(map[Stage]int, len(Stages))
	for _, stage := range Stages {
		counts[stage] = 0
	}
	for _, p := range projects {
		counts[p.Stage]++
	}
	return counts
}

func QuadrantOf(idea SavedIdea) Quadrant {
	high := idea.GapScore >= highGapScore
	switch {
	case high && idea.Industrial:
		return QuadrantFrontier
	case high:
		return QuadrantBreakthrough
	case idea.Industrial:
		return QuadrantIncremental
	default:
		return QuadrantFoundational
	}
}

// Matrix places ideas into strategy quadrants. Every quadrant is present in the
// result, possibly empty.
func Matrix(ideas []SavedIdea) map[Quadrant][]SavedIdea {
	m := map[Quadrant][]SavedIdea{
		QuadrantFrontier:     {},
		QuadrantBreakthrough: {},
		QuadrantIncremental:  {},
		QuadrantFoundational: {},
	}
	for _, idea := range ideas {
		q := QuadrantOf(idea)
		m[q] = append(m[q], idea)
	}
	return m
}
