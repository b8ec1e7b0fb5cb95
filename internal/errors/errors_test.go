package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilder(t *testing.T) {
	t.Parallel()

	base := fmt.Errorf("upsert failed")
	err := New(base).
		Component("datastore").
		Category(CategoryDatabase).
		Context("operation", "upsert_user").
		Build()

	var ee *EnhancedError
	require.True(t, As(err, &ee), "expected an EnhancedError")
	assert.Equal(t, "datastore", ee.Component)
	assert.Equal(t, CategoryDatabase, ee.Category)
	assert.Equal(t, "upsert_user", ee.GetContext()["operation"])
	assert.True(t, Is(err, base), "enhanced error must unwrap to the original")
}

func TestBuildDefaults(t *testing.T) {
	t.Parallel()

	err := Newf("boom").Build()

	var ee *EnhancedError
	require.True(t, As(err, &ee))
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuildNilError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, New(nil).Category(CategoryDatabase).Build())
}

func TestHasCategory(t *testing.T) {
	t.Parallel()

	err := Newf("directory unreachable").Category(CategoryConnection).Build()
	wrapped := fmt.Errorf("migrate: %w", err)

	assert.True(t, HasCategory(wrapped, CategoryConnection))
	assert.False(t, HasCategory(wrapped, CategoryDatabase))
	assert.False(t, HasCategory(fmt.Errorf("plain"), CategoryConnection))
}

func TestGetContextCopy(t *testing.T) {
	t.Parallel()

	err := Newf("x").Context("k", "v").Build()
	var ee *EnhancedError
	require.True(t, As(err, &ee))

	ctx := ee.GetContext()
	ctx["k"] = "mutated"
	assert.Equal(t, "v", ee.GetContext()["k"], "GetContext must return a copy")
}
