package router

import (
	"context"
	"strings"

	"github.com/BaSui01/teamflow/team"
	"github.com/BaSui01/teamflow/types"
)

// KeywordClassifier scores each target by term overlap between the user
// message and the target's handoff description and instructions. It is
// deterministic and needs no backend, which makes it the right classifier
// for tests and for deployments without a reasoning endpoint.
//
// A zero score or a tie between the top two targets is ambiguous.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(ctx context.Context, triage *team.AgentDefinition, targets []*team.AgentDefinition, message string, history []types.Turn) (Selection, error) {
	terms := strings.Fields(strings.ToLower(message))
	if len(terms) == 0 {
		return Selection{Reasoning: "empty message"}, nil
	}

	var best, second *team.AgentDefinition
	bestScore, secondScore := 0, 0
	for _, target := range targets {
		corpus := strings.ToLower(target.HandoffDescription + " " + target.Instructions + " " + target.Name)
		score := 0
		for _, term := range terms {
			if len(term) < 3 {
				continue
			}
			score += strings.Count(corpus, term)
		}
		if score > bestScore {
			second, secondScore = best, bestScore
			best, bestScore = target, score
		} else if score > secondScore {
			second, secondScore = target, score
		}
	}

	if best == nil || bestScore == 0 {
		return Selection{Reasoning: "no target matched the message"}, nil
	}
	if second != nil && secondScore == bestScore {
		return Selection{Reasoning: "message matches multiple targets equally"}, nil
	}
	return Selection{Agent: best.Name, Reasoning: "keyword match against handoff description"}, nil
}
