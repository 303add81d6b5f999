package pipeline

import (
	"context"
	"fmt"
	"time"

	"autoarchitect/internal/entity"
)

// Analyzer is the port for the actual analysis pipeline: fetch the repository,
// reason about it, produce a summary and a Mermaid diagram. Implementations
// live outside this module; the workers only see this interface.
type Analyzer interface {
	Analyze(ctx context.Context, input entity.AnalyzeInput) (*entity.AnalysisResult, error)
}

// Canned returns a static result after an optional delay. It stands in for a
// real pipeline so the service runs end to end without one configured.
type Canned struct {
	Delay time.Duration
}

func (c Canned) Analyze(ctx context.Context, input entity.AnalyzeInput) (*entity.AnalysisResult, error) {
	if c.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.Delay):
		}
	}

	return &entity.AnalysisResult{
		Summary: fmt.Sprintf("## Analysis Simulation\n\nNo analysis pipeline is configured. "+
			"Showing a simulated summary for %s.", input.RepoURL),
		Mermaid: cannedMermaid,
	}, nil
}

const cannedMermaid = `graph TD;
    subgraph "Simulated Architecture"
        Client[Client / Frontend] --> API[API Gateway];
        API --> ServiceA[Auth Service];
        API --> ServiceB[Core Logic];
        ServiceB --> DB[(Database)];
        ServiceA --> Cache[(Redis)];
    end`
