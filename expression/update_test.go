/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package expression

import (
	"regexp"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/ddbquery/errors"
)

func TestCompileUpdate(t *testing.T) {
	u, err := CompileUpdate(
		map[string]any{"status": "closed", "count": 3, "owner": "closed"},
		"status = :expected",
		map[string]any{"expected": "open"},
	)
	require.NoError(t, err)

	set := regexp.MustCompile(`^SET (#f[0-9a-f]+) = (:v[0-9a-f]+), (#f[0-9a-f]+) = (:v[0-9a-f]+), (#f[0-9a-f]+) = (:v[0-9a-f]+)$`).
		FindStringSubmatch(u.Set)
	require.NotNil(t, set, "got %q", u.Set)

	// Fields are sorted: count, owner, status.
	assert.Equal(t, "count", u.Names[set[1]])
	assert.Equal(t, "owner", u.Names[set[3]])
	assert.Equal(t, "status", u.Names[set[5]])

	// Equal values share a token.
	assert.Equal(t, set[4], set[6])
	assert.Equal(t, &types.AttributeValueMemberN{Value: "3"}, u.Values[set[2]])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "closed"}, u.Values[set[4]])

	assert.Equal(t, set[5]+" = :expected", u.Condition)
	assert.Equal(t, &types.AttributeValueMemberS{Value: "open"}, u.Values[":expected"])
	assert.Len(t, u.Values, 3)
}

func TestCompileUpdateOmitsUnreferencedValues(t *testing.T) {
	u, err := CompileUpdate(map[string]any{"status": "closed"}, "", map[string]any{"expected": "open"})
	require.NoError(t, err)
	assert.Empty(t, u.Condition)
	assert.Len(t, u.Values, 1)
	assert.NotContains(t, u.Values, ":expected")
}

func TestCompileUpdateWithoutCondition(t *testing.T) {
	u, err := CompileUpdate(map[string]any{"n": 1}, "", nil)
	require.NoError(t, err)
	assert.Nil(t, u.ConditionExpression())
	assert.Len(t, u.Names, 1)
}

func TestCompileUpdateErrors(t *testing.T) {
	_, err := CompileUpdate(nil, "", nil)
	assert.True(t, errors.IsValidationError(err))

	_, err = CompileUpdate(map[string]any{"a b": 1}, "", nil)
	assert.True(t, errors.IsValidationError(err))

	_, err = CompileUpdate(map[string]any{"a": 1}, "what?", nil)
	assert.True(t, errors.IsUnparsableStatement(err))

	_, err = CompileUpdate(map[string]any{"a": 1}, "a = :missing", nil)
	assert.ErrorIs(t, err, errors.ErrMissingValue)

	_, err = CompileUpdate(map[string]any{"a": func() {}}, "", nil)
	assert.True(t, errors.IsUnsupportedValue(err))
}
