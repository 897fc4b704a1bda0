package router

import (
	"eva/internal/perception"
)

// featureCutoff is the minimum fuzzy score for a constrained argument
// match, on a 0-100 scale.
const featureCutoff = 70

// Resolve finds the feature under cmd that accepts object, and the argument
// to pass it. Constrained features need a fuzzy score above featureCutoff
// and better than any earlier feature's; an unconstrained feature wins
// immediately with the raw object. The open command family falls back to
// open_file because files are unconstrained targets.
func Resolve(cmd Command, object string) (feature, argument string, ok bool) {
	bestScore := 0
	var bestFeature string

	for _, f := range cmd.Features {
		if f.Arguments == nil {
			// Unconstrained: first such feature wins outright.
			return f.Name, object, true
		}
		if _, score, hit := perception.BestMatch(object, f.Arguments, featureCutoff+1); hit {
			if score > bestScore {
				bestScore = score
				bestFeature = f.Name
			}
		}
	}

	if bestFeature != "" {
		return bestFeature, object, true
	}
	if cmd.Name == "open_features" {
		return "open_file", object, true
	}
	return "", "", false
}
