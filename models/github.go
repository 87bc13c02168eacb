package models

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// GitHubModelsBaseURL is the OpenAI-compatible GitHub Models endpoint.
const GitHubModelsBaseURL = "https://models.github.ai/inference"

// ErrMissingToken is returned when a hosted provider is selected without credentials.
var ErrMissingToken = errors.New("models: API token is required")

// githubHeaderTransport adds the API version header GitHub Models expects.
type githubHeaderTransport struct {
	base http.RoundTripper
}

func (t *githubHeaderTransport) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	return t.base.RoundTrip(req)
}

// newGitHubModel creates an llms.Model for a GitHub Models id such as "openai/gpt-4o-mini".
// token must be a fine-grained PAT with models:read.
func newGitHubModel(model, token string) (llms.Model, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: github provider needs a PAT with models:read", ErrMissingToken)
	}
	llm, err := openai.New(
		openai.WithBaseURL(GitHubModelsBaseURL),
		openai.WithToken(token),
		openai.WithModel(model),
		openai.WithHTTPClient(&githubHeaderTransport{base: http.DefaultTransport}),
	)
	if err != nil {
		return nil, fmt.Errorf("create GitHub Models client: %w", err)
	}
	return llm, nil
}
