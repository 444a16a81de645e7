package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonsec/guardian-cli/api/schemas"
)

func TestFingerprint_NormalizesToolCodesAndNumbers(t *testing.T) {
	a := schemas.Finding{File: "app.py", Line: 10, Message: "[B603: subprocess] Unsafe subprocess call"}
	b := schemas.Finding{File: "app.py", Line: 10, Message: "Unsafe subprocess call"}

	assert.Equal(t, Fingerprint(b), Fingerprint(a))
}

func TestFingerprint_StripsLineReferences(t *testing.T) {
	a := schemas.Finding{File: "app.py", Line: 5, Message: "line 42: dangerous call"}
	b := schemas.Finding{File: "app.py", Line: 5, Message: "dangerous call"}

	assert.Equal(t, Fingerprint(b), Fingerprint(a))
}

func TestFingerprint_CaseInsensitive(t *testing.T) {
	a := schemas.Finding{File: "app.py", Line: 3, Message: "Hardcoded Password Detected"}
	b := schemas.Finding{File: "app.py", Line: 3, Message: "hardcoded password detected"}

	assert.Equal(t, Fingerprint(b), Fingerprint(a))
}

func TestFingerprint_PrefixBounded(t *testing.T) {
	long := "this message is deliberately much longer than fifty characters so only the prefix matters"
	a := schemas.Finding{File: "a.py", Line: 1, Message: long + " variant one"}
	b := schemas.Finding{File: "a.py", Line: 1, Message: long + " variant two"}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_FileLevelUsesZeroLine(t *testing.T) {
	f := schemas.Finding{File: "a.py", Message: "whole-file issue"}
	assert.Equal(t, "a.py:0:whole-file issue", Fingerprint(f))
}

func TestFingerprint_DistinguishesFileAndLine(t *testing.T) {
	base := schemas.Finding{File: "a.py", Line: 1, Message: "same message"}
	otherFile := schemas.Finding{File: "b.py", Line: 1, Message: "same message"}
	otherLine := schemas.Finding{File: "a.py", Line: 2, Message: "same message"}

	assert.NotEqual(t, Fingerprint(base), Fingerprint(otherFile))
	assert.NotEqual(t, Fingerprint(base), Fingerprint(otherLine))
}

func TestDeduplicate_FirstSeenIsCanonical(t *testing.T) {
	findings := []schemas.Finding{
		{File: "app.py", Line: 7, Type: schemas.TypeSecurity, Severity: schemas.SeverityHigh, Message: "eval() usage detected", Tool: "security_scanner"},
		{File: "app.py", Line: 7, Type: schemas.TypeSemantic, Severity: schemas.SeverityCritical, Message: "eval() usage detected", Tool: "llm_enhanced"},
	}

	out := Deduplicate(findings)
	require.Len(t, out, 1)
	assert.Equal(t, schemas.SeverityHigh, out[0].Severity, "first-seen record wins")
	assert.Equal(t, []string{"security_scanner", "llm_enhanced"}, out[0].DetectedBy)
	assert.Equal(t, 2, out[0].Confidence)
}

func TestDeduplicate_SameOriginNotRepeated(t *testing.T) {
	findings := []schemas.Finding{
		{File: "a.py", Line: 1, Message: "dup", Tool: "flake8"},
		{File: "a.py", Line: 1, Message: "dup", Tool: "flake8"},
		{File: "a.py", Line: 1, Message: "dup", Tool: "flake8"},
	}

	out := Deduplicate(findings)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"flake8"}, out[0].DetectedBy)
	assert.Equal(t, 1, out[0].Confidence)
}

func TestDeduplicate_PreservesInputOrder(t *testing.T) {
	findings := []schemas.Finding{
		{File: "a.py", Line: 1, Message: "first"},
		{File: "b.py", Line: 2, Message: "second"},
		{File: "a.py", Line: 1, Message: "first"},
		{File: "c.py", Line: 3, Message: "third"},
	}

	out := Deduplicate(findings)
	require.Len(t, out, 3)
	assert.Equal(t, "first", out[0].Message)
	assert.Equal(t, "second", out[1].Message)
	assert.Equal(t, "third", out[2].Message)
}

func TestDeduplicate_OriginFallsBackToType(t *testing.T) {
	findings := []schemas.Finding{
		{File: "a.py", Line: 1, Type: schemas.TypeSecurity, Message: "issue"},
		{File: "a.py", Line: 1, Type: schemas.TypeBugPattern, Message: "issue"},
	}

	out := Deduplicate(findings)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"security", "bug_pattern"}, out[0].DetectedBy)
}

func TestFilterNoise_DropsLowRiskNoise(t *testing.T) {
	findings := []schemas.Finding{
		{File: "a.py", Type: schemas.TypeStatic, Message: "Line too long (120/100)", RiskScore: 1.5},
		{File: "a.py", Type: schemas.TypeStatic, Message: "Line too long (120/100)", RiskScore: 5.0},
	}

	out := FilterNoise(findings)
	require.Len(t, out, 1)
	assert.InDelta(t, 5.0, out[0].RiskScore, 1e-9)
}

func TestFilterNoise_SecurityAlwaysKept(t *testing.T) {
	findings := []schemas.Finding{
		{File: "a.py", Type: schemas.TypeSecurity, Message: "Insecure HTTP connection", RiskScore: 2.0},
	}
	assert.Len(t, FilterNoise(findings), 1)
}

func TestFilterNoise_LowRiskComplexityDropped(t *testing.T) {
	findings := []schemas.Finding{
		{File: "a.py", Type: schemas.TypeComplexity, Message: "Low comment ratio", RiskScore: 2.5},
		{File: "b.py", Type: schemas.TypeComplexity, Message: "Deep nesting detected", RiskScore: 6.0},
	}

	out := FilterNoise(findings)
	require.Len(t, out, 1)
	assert.Equal(t, "b.py", out[0].File)
}

func TestFilterNoise_CriticalSemanticKept(t *testing.T) {
	findings := []schemas.Finding{
		{File: "a.py", Type: schemas.TypeSemantic, Message: "CRITICAL: unguarded division", RiskScore: 3.0},
	}
	assert.Len(t, FilterNoise(findings), 1)
}
