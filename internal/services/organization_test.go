package services

import (
	"testing"

	"github.com/huangang/consultdesk/internal/models"
)

func TestMemberItems_UnknownUserFallback(t *testing.T) {
	members := []models.OrganizationMember{
		{UserID: 1, Role: models.OrgRoleAdmin, User: &models.User{Username: "alice", Nickname: "Alice"}},
		{UserID: 2, Role: models.OrgRoleMember},
	}

	items := memberItems(members)
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, expected 2", len(items))
	}
	if items[0].Username != "alice" || items[0].Nickname != "Alice" || items[0].Role != models.OrgRoleAdmin {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Username != "Unknown User" {
		t.Errorf("items[1].Username = %q, expected %q", items[1].Username, "Unknown User")
	}
}

func TestOrganizationService_CreateRequiresName(t *testing.T) {
	svc := NewOrganizationService(nil)
	if _, err := svc.Create(1, &CreateOrganizationRequest{Name: "   "}); err == nil {
		t.Error("Create with a blank name should fail before touching the database")
	}
}
