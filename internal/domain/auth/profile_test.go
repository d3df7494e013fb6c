package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileUpdate_Validate(t *testing.T) {
	var ae *Error

	err := ProfileUpdate{Name: "  "}.Validate()
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "name", ae.Field)
	assert.Equal(t, "الاسم مطلوب", Localize(err, LangArabicEG))

	err = ProfileUpdate{Name: "Mona", Email: "not-an-email"}.Validate()
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "email", ae.Field)
	assert.Equal(t, ReasonInvalid, ae.Reason)

	assert.NoError(t, ProfileUpdate{Name: "Mona", Email: "mona@fixzone.test"}.Validate())
}

func TestProfileUpdate_Apply(t *testing.T) {
	base := Identity{ID: 5, Name: "Old", Email: "old@fixzone.test", Phone: "0100", RoleID: RoleStaff}

	empty := ""
	got := ProfileUpdate{Name: " New ", Phone: &empty}.Apply(base)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, "old@fixzone.test", got.Email)
	assert.Empty(t, got.Phone)
	assert.Equal(t, RoleStaff, got.RoleID)

	got = ProfileUpdate{Name: "New"}.Apply(base)
	assert.Equal(t, "0100", got.Phone)
}
