package schemas_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

func TestNewFinding_Valid(t *testing.T) {
	f, err := schemas.NewFinding("app.py", schemas.TypeSecurity, schemas.SeverityHigh, "Hardcoded password detected")
	require.NoError(t, err)
	assert.Equal(t, "app.py", f.File)
	assert.Equal(t, schemas.TypeSecurity, f.Type)
	assert.Zero(t, f.Line, "constructor findings are file-level until a line is set")
}

func TestNewFinding_Invalid(t *testing.T) {
	_, err := schemas.NewFinding("", schemas.TypeSecurity, schemas.SeverityHigh, "msg")
	assert.ErrorIs(t, err, schemas.ErrMissingFile)

	_, err = schemas.NewFinding("app.py", schemas.TypeSecurity, schemas.SeverityHigh, "   ")
	assert.ErrorIs(t, err, schemas.ErrMissingMessage)
}

func TestFinding_Origin(t *testing.T) {
	f := schemas.Finding{Type: schemas.TypeBugPattern}
	assert.Equal(t, "bug_pattern", f.Origin())

	f.Tool = "pylint"
	assert.Equal(t, "pylint", f.Origin())
}

func TestFinding_JSONOmitsUnsetRiskFields(t *testing.T) {
	f := schemas.Finding{File: "a.py", Type: schemas.TypeComplexity, Severity: schemas.SeverityLow, Message: "File too large"}
	raw, err := json.Marshal(f)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "risk_score")
	assert.NotContains(t, string(raw), "detected_by")
	assert.NotContains(t, string(raw), "line")
}

func TestDefaultContext(t *testing.T) {
	actx := schemas.DefaultContext()
	assert.Equal(t, schemas.StageDevelopment, actx.Stage)
	assert.Equal(t, "medium", actx.RiskTolerance)
	assert.False(t, actx.PerformanceCritical)
	assert.False(t, actx.DomainComplexity)
}
