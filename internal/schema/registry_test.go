package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCompilesAllBuiltinKinds(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)
	for kind := range builtinSchemas {
		require.True(t, reg.Known(kind), "kind %s should be known", kind)
	}
}

func TestValidateAcceptsWellFormedComponent(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)
	err = reg.Validate("identity", map[string]any{"name": "torch"})
	require.NoError(t, err)
}

func TestValidateRejectsMissingRequiredField(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)
	err = reg.Validate("identity", map[string]any{})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestValidateUnknownKindFails(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)
	err = reg.Validate("not_a_kind", map[string]any{})
	require.Error(t, err)
}

func TestValidateCrossFieldCheckRejectsHealthAboveMax(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)
	err = reg.Validate("durability", map[string]any{"health": 20.0, "maxHealth": 10.0})
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	require.Equal(t, "health", ve.Field)
}

func TestValidateCrossFieldCheckAcceptsHealthAtMax(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)
	err = reg.Validate("durability", map[string]any{"health": 10.0, "maxHealth": 10.0})
	require.NoError(t, err)
}

func TestMaxForReturnsDefaultWithoutOverride(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)
	require.Equal(t, 3, reg.MaxFor(nil, "portable"))
	require.Equal(t, 1, reg.MaxFor(nil, "identity"))
}

func TestMaxForAppliesContractLimitOverride(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)
	require.Equal(t, 1, reg.MaxFor(map[string]any{"portable": 1.0}, "portable"))
	require.Equal(t, 3, reg.MaxFor(map[string]any{"portable": -1.0}, "portable"))
}

func TestKindsReturnsSortedRecognizedKinds(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)
	kinds := reg.Kinds()
	require.NotEmpty(t, kinds)
	for i := 1; i < len(kinds); i++ {
		require.Less(t, kinds[i-1], kinds[i])
	}
}

func TestRegisterAddsTestTimeKind(t *testing.T) {
	reg, err := New()
	require.NoError(t, err)
	require.False(t, reg.Known("widget"))

	err = reg.Register("widget", `{"type":"object","required":["spin"],"properties":{"spin":{"type":"boolean"}}}`, 2, nil)
	require.NoError(t, err)
	require.True(t, reg.Known("widget"))
	require.Equal(t, 2, reg.MaxFor(nil, "widget"))
	require.NoError(t, reg.Validate("widget", map[string]any{"spin": true}))
}
