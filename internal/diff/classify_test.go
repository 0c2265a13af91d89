package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AJ-AI23/verjson-sub008/internal/domain"
)

func classifyBetween(t *testing.T, a, b string) domain.Tier {
	t.Helper()
	base := mustParse(t, a)
	return Classify(base, Diff(base, mustParse(t, b)))
}

func TestClassify_EmptyDiffIsPatch(t *testing.T) {
	base := mustParse(t, `{"a":1}`)
	assert.Equal(t, domain.TierPatch, Classify(base, nil))
}

func TestClassify_AddIsMinor(t *testing.T) {
	assert.Equal(t, domain.TierMinor, classifyBetween(t,
		`{"a":1}`,
		`{"a":1,"b":2}`,
	))
}

func TestClassify_RemoveOptionalIsPatch(t *testing.T) {
	assert.Equal(t, domain.TierPatch, classifyBetween(t,
		`{"a":1,"b":2}`,
		`{"a":1}`,
	))
}

func TestClassify_RemoveRequiredIsMajor(t *testing.T) {
	assert.Equal(t, domain.TierMajor, classifyBetween(t,
		`{"required":["name"],"name":"x","age":3}`,
		`{"required":["name"],"age":3}`,
	))
}

func TestClassify_RemoveRequiredSchemaPropertyIsMajor(t *testing.T) {
	assert.Equal(t, domain.TierMajor, classifyBetween(t,
		`{"required":["id"],"properties":{"id":{"type":"string"},"tag":{"type":"string"}}}`,
		`{"required":["id"],"properties":{"tag":{"type":"string"}}}`,
	))
}

func TestClassify_ScalarReplaceIsPatch(t *testing.T) {
	assert.Equal(t, domain.TierPatch, classifyBetween(t,
		`{"description":"old"}`,
		`{"description":"new"}`,
	))
}

func TestClassify_KindChangeIsMajor(t *testing.T) {
	assert.Equal(t, domain.TierMajor, classifyBetween(t,
		`{"value":"text"}`,
		`{"value":7}`,
	))
}

func TestClassify_TypeKeywordChangeIsMajor(t *testing.T) {
	assert.Equal(t, domain.TierMajor, classifyBetween(t,
		`{"field":{"type":"string"}}`,
		`{"field":{"type":"integer"}}`,
	))
}

func TestClassify_ConstraintWidening(t *testing.T) {
	assert.Equal(t, domain.TierMinor, classifyBetween(t,
		`{"maxLength":10}`,
		`{"maxLength":20}`,
	))
	assert.Equal(t, domain.TierMinor, classifyBetween(t,
		`{"minimum":5}`,
		`{"minimum":1}`,
	))
}

func TestClassify_ConstraintNarrowing(t *testing.T) {
	assert.Equal(t, domain.TierMajor, classifyBetween(t,
		`{"maxLength":10}`,
		`{"maxLength":5}`,
	))
	assert.Equal(t, domain.TierMajor, classifyBetween(t,
		`{"minimum":1}`,
		`{"minimum":5}`,
	))
}

func TestClassify_EnumNarrowingIsMajor(t *testing.T) {
	// Dropping a member surfaces as a remove inside the enum array.
	assert.Equal(t, domain.TierMajor, classifyBetween(t,
		`{"enum":["a","b","c"]}`,
		`{"enum":["a","b"]}`,
	))
	// Rewriting a member drops the old value too.
	assert.Equal(t, domain.TierMajor, classifyBetween(t,
		`{"enum":["a","b"]}`,
		`{"enum":["a","c"]}`,
	))
	// Growing the enum only widens it.
	assert.Equal(t, domain.TierMinor, classifyBetween(t,
		`{"enum":["a","b"]}`,
		`{"enum":["a","b","c"]}`,
	))
}

func TestClassify_HighestTierWins(t *testing.T) {
	// An add (minor) alongside a required removal (major).
	assert.Equal(t, domain.TierMajor, classifyBetween(t,
		`{"required":["name"],"name":"x"}`,
		`{"required":["name"],"extra":true}`,
	))
}

func TestClassify_MoveOfRequiredFieldIsMajor(t *testing.T) {
	base := mustParse(t, `{"required":["name"],"name":{"first":"a","last":"b"}}`)
	ops := []domain.DiffOp{{
		Op:   domain.OpMove,
		From: domain.Path{domain.KeySegment("name")},
		Path: domain.Path{domain.KeySegment("fullName")},
	}}
	assert.Equal(t, domain.TierMajor, Classify(base, ops))
}
