package form

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Name  string `form:"name"  validate:"required,max=5"`
	Email string `form:"email" validate:"required,email"`
	Note  string `validate:"max=3"`
}

func TestValidate_OK(t *testing.T) {
	errs, err := New().Validate(signup{Name: "ann", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.False(t, errs.Any())
}

func TestValidate_FieldOrderAndNames(t *testing.T) {
	errs, err := New().Validate(&signup{Name: strings.Repeat("x", 6), Email: "nope", Note: "long"})
	require.NoError(t, err)

	require.Len(t, errs, 3)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "Must be at most 5 characters.", errs[0].Message)
	assert.Equal(t, "email", errs[1].Field)
	assert.Equal(t, "Must be a valid email address.", errs[1].Message)
	assert.Equal(t, "Note", errs[2].Field)
}

func TestValidate_Required(t *testing.T) {
	errs, err := New().Validate(signup{})
	require.NoError(t, err)

	assert.Equal(t, []string{"This field is required."}, errs.For("name"))
	assert.Equal(t, []string{"This field is required."}, errs.For("email"))
	assert.Empty(t, errs.For("Note"))
}

func TestValidate_NotAStruct(t *testing.T) {
	_, err := New().Validate(42)
	assert.Error(t, err)
}

func TestErrors_Add(t *testing.T) {
	var errs Errors
	assert.False(t, errs.Any())

	errs.Add("username", "taken")
	errs.Add("username", "again")

	assert.True(t, errs.Any())
	assert.Equal(t, []string{"taken", "again"}, errs.For("username"))
	assert.Equal(t, "username: taken; username: again", errs.Error())
}
