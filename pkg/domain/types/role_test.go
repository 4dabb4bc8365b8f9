package types_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/actiontrail/pkg/domain/types"
)

func TestRole(t *testing.T) {
	for _, r := range types.AllRoles() {
		gt.Bool(t, r.IsValid()).True()
		parsed, err := types.ParseRole(r.String())
		gt.NoError(t, err).Required()
		gt.Value(t, parsed).Equal(r)
	}

	_, err := types.ParseRole("superuser")
	gt.Error(t, err)
	gt.Bool(t, types.Role("").IsValid()).False()
}

func TestNormalizeRole(t *testing.T) {
	testCases := map[string]types.Role{
		"admin":     types.RoleAdmin,
		"user":      types.RoleUser,
		"":          types.RoleUser,
		"ADMIN":     types.RoleUser,
		"superuser": types.RoleUser,
	}
	for input, want := range testCases {
		t.Run(input, func(t *testing.T) {
			gt.Value(t, types.NormalizeRole(input)).Equal(want)
		})
	}
}

func TestNewIDsAreUnique(t *testing.T) {
	gt.String(t, types.NewUserID().String()).NotEqual(types.NewUserID().String())
	gt.String(t, types.NewActionID().String()).NotEqual(types.NewActionID().String())
	gt.String(t, types.NewPlanID().String()).NotEqual(types.NewPlanID().String())
	gt.String(t, types.NewTokenID().String()).NotEqual("")
}
