package domain

import (
	"errors"
	"testing"
)

func TestActor_Require(t *testing.T) {
	tests := []struct {
		name    string
		actor   *Actor
		roles   []Role
		wantErr error
	}{
		{"nil actor", nil, []Role{RoleDMPManager}, ErrUnauthorized},
		{"matching role", &Actor{Role: RoleDMPManager, Status: UserStatusActive}, []Role{RoleDMPManager}, nil},
		{"one of many", &Actor{Role: RoleCategoryManager}, []Role{RoleCategoryManager, RoleDMPManager}, nil},
		{"wrong role", &Actor{Role: RoleSupplier}, []Role{RoleDMPManager}, ErrForbidden},
		{"pending account", &Actor{Role: RoleCategoryManager, Status: UserStatusPending}, []Role{RoleCategoryManager}, ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.actor.Require(tt.roles...)
			if tt.wantErr == nil && err != nil {
				t.Errorf("Require() error = %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Require() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestActor_ScopedCategory(t *testing.T) {
	if got := (&Actor{Role: RoleCategoryManager, Category: "FOOD"}).ScopedCategory(); got != "FOOD" {
		t.Errorf("ScopedCategory() = %q", got)
	}
	if got := (&Actor{Role: RoleDMPManager, Category: "FOOD"}).ScopedCategory(); got != "" {
		t.Errorf("ScopedCategory() = %q, want empty", got)
	}
}

func TestErrorClassification(t *testing.T) {
	if !IsNotFoundError(ErrZoneNotFound) || IsNotFoundError(ErrForbidden) {
		t.Error("IsNotFoundError misclassified")
	}
	if !IsConflictError(ErrZoneHasBookings) || IsConflictError(ErrInvalidTransition) {
		t.Error("IsConflictError misclassified")
	}
	if !IsValidationError(ErrEmptyZoneList) || IsValidationError(ErrZoneNotFound) {
		t.Error("IsValidationError misclassified")
	}
}
