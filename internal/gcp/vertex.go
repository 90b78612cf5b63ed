package gcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/iramuteqtagger/internal/tagging"
)

// DefaultModel is the Gemini model used when VERTEX_AI_MODEL is unset.
const DefaultModel = "gemini-1.5-pro"

// classifierMaxTokens caps the answer; only a single category word is expected.
const classifierMaxTokens = 10

var errEmptyResponse = errors.New("model returned no candidates")

// VertexClient holds the pre-configured classifier model.
type VertexClient struct {
	ClassifierModel *genai.GenerativeModel
	baseClient      *genai.Client
}

// NewVertexClient creates a client whose classifier model decodes
// deterministically with a short output cap.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	classifierModel := baseClient.GenerativeModel(modelName)
	classifierModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(tagging.SystemPrompt)},
	}
	classifierModel.GenerationConfig = genai.GenerationConfig{
		Temperature:      genai.Ptr[float32](0.0),
		CandidateCount:   genai.Ptr[int32](1),
		MaxOutputTokens:  genai.Ptr[int32](classifierMaxTokens),
		ResponseMIMEType: "text/plain",
	}

	return &VertexClient{
		ClassifierModel: classifierModel,
		baseClient:      baseClient,
	}, nil
}

// Complete sends one classification prompt and returns the raw answer text.
func (c *VertexClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.ClassifierModel.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return extractText(resp)
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errEmptyResponse
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String(), nil
}

var _ tagging.ClassificationService = (*VertexClient)(nil)
