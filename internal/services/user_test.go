package services

import (
	"errors"
	"testing"

	"github.com/huangang/consultdesk/internal/models"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestUserUpdates(t *testing.T) {
	tests := []struct {
		name    string
		req     UpdateUserRequest
		fields  int
		revokes bool
		wantErr bool
	}{
		{"promote", UpdateUserRequest{Role: strPtr(models.RoleAdmin)}, 1, false, false},
		{"demote", UpdateUserRequest{Role: strPtr(models.RoleUser)}, 1, true, false},
		{"disable", UpdateUserRequest{IsActive: boolPtr(false)}, 1, true, false},
		{"enable and rename", UpdateUserRequest{IsActive: boolPtr(true), Nickname: strPtr(" Ana ")}, 2, false, false},
		{"bad role", UpdateUserRequest{Role: strPtr("owner")}, 0, false, true},
		{"empty", UpdateUserRequest{}, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates, revokes, err := userUpdates(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var v *ValidationError
				if !errors.As(err, &v) {
					t.Errorf("err = %T, expected *ValidationError", err)
				}
				return
			}
			if len(updates) != tt.fields {
				t.Errorf("updates = %v, expected %d fields", updates, tt.fields)
			}
			if revokes != tt.revokes {
				t.Errorf("revokes = %v, expected %v", revokes, tt.revokes)
			}
		})
	}

	updates, _, _ := userUpdates(&UpdateUserRequest{Nickname: strPtr(" Ana ")})
	if updates["nickname"] != "Ana" {
		t.Errorf("nickname = %q, expected trimmed", updates["nickname"])
	}
}

func TestUserService_UpdateSelf(t *testing.T) {
	svc := NewUserService(nil)
	_, err := svc.Update(7, 7, &UpdateUserRequest{Role: strPtr(models.RoleUser)})
	var state *InvalidStateError
	if !errors.As(err, &state) {
		t.Errorf("Update(self) err = %v, expected *InvalidStateError", err)
	}
}
