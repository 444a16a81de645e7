package contextual

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) GenerateResponse(ctx context.Context, req schemas.GenerationRequest) (schemas.GenerationResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(schemas.GenerationResult), args.Error(1)
}

func TestParse_FullResponse(t *testing.T) {
	actx := Parse(`Purpose: Payment processing service
Type: Service
Stage: Production
Performance Critical: Yes
Domain Complexity: No
Risk Tolerance: Low`)

	assert.Equal(t, "Payment processing service", actx.Purpose)
	assert.Equal(t, "Service", actx.ProjectType)
	assert.Equal(t, schemas.StageProduction, actx.Stage)
	assert.True(t, actx.PerformanceCritical)
	assert.False(t, actx.DomainComplexity)
	assert.Equal(t, "low", actx.RiskTolerance)
}

func TestParse_MalformedLinesKeepDefaults(t *testing.T) {
	actx := Parse(`Some prose the model added.
Stage: Prototype
Risk Tolerance: extreme`)

	def := schemas.DefaultContext()
	assert.Equal(t, def.Purpose, actx.Purpose)
	assert.Equal(t, schemas.StagePrototype, actx.Stage)
	// Out-of-range tolerance falls back to the default.
	assert.Equal(t, def.RiskTolerance, actx.RiskTolerance)
}

func TestParse_EmptyResponseIsDefault(t *testing.T) {
	assert.Equal(t, schemas.DefaultContext(), Parse(""))
}

func TestDerive_NilClientReturnsDefault(t *testing.T) {
	p := NewProducer(nil, zap.NewNop())
	actx := p.Derive(context.Background(), map[string]string{"a.py": "x = 1"})
	assert.Equal(t, schemas.DefaultContext(), actx)
}

func TestDerive_EmptyCorpusReturnsDefault(t *testing.T) {
	client := new(MockLLMClient)
	p := NewProducer(client, zap.NewNop())

	actx := p.Derive(context.Background(), nil)
	assert.Equal(t, schemas.DefaultContext(), actx)
	client.AssertNotCalled(t, "GenerateResponse")
}

func TestDerive_ClientErrorReturnsDefault(t *testing.T) {
	client := new(MockLLMClient)
	client.On("GenerateResponse", mock.Anything, mock.Anything).
		Return(schemas.GenerationResult{}, errors.New("backend down"))

	p := NewProducer(client, zap.NewNop())
	actx := p.Derive(context.Background(), map[string]string{"a.py": "x = 1"})

	assert.Equal(t, schemas.DefaultContext(), actx)
	tokens, cost := p.Usage()
	assert.Zero(t, tokens)
	assert.Zero(t, cost)
}

func TestDerive_TracksUsage(t *testing.T) {
	client := new(MockLLMClient)
	client.On("GenerateResponse", mock.Anything, mock.Anything).
		Return(schemas.GenerationResult{Text: "Stage: Production", PromptTokens: 120, CompletionTokens: 30, Cost: 0.002}, nil)

	p := NewProducer(client, zap.NewNop())
	actx := p.Derive(context.Background(), map[string]string{"a.py": "x = 1"})

	assert.Equal(t, schemas.StageProduction, actx.Stage)
	tokens, cost := p.Usage()
	assert.Equal(t, 150, tokens)
	assert.InDelta(t, 0.002, cost, 1e-9)
}

func TestDerive_PromptContainsFileListAndSample(t *testing.T) {
	client := new(MockLLMClient)
	var captured schemas.GenerationRequest
	client.On("GenerateResponse", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(schemas.GenerationRequest)
		}).
		Return(schemas.GenerationResult{Text: ""}, nil)

	p := NewProducer(client, zap.NewNop())
	p.Derive(context.Background(), map[string]string{
		"main.py":  "import os",
		"utils.py": "def helper(): pass",
	})

	require.NotEmpty(t, captured.UserPrompt)
	assert.Contains(t, captured.UserPrompt, "- main.py")
	assert.Contains(t, captured.UserPrompt, "- utils.py")
	assert.Contains(t, captured.UserPrompt, "import os")
	assert.Contains(t, captured.UserPrompt, "Risk Tolerance:")
}
