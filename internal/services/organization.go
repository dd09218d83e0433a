package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/huangang/consultdesk/internal/models"
	"gorm.io/gorm"
)

// OrganizationService groups users into organizations. Only organization
// admins may invite.
type OrganizationService struct {
	db *gorm.DB
}

func NewOrganizationService(db *gorm.DB) *OrganizationService {
	return &OrganizationService{db: db}
}

type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

type InviteMemberRequest struct {
	Username string `json:"username" binding:"required"`
}

type OrganizationItem struct {
	models.Organization
	Role string `json:"role"`
}

type OrganizationMemberItem struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
}

// Create makes the creator the organization's first admin.
func (s *OrganizationService) Create(userID uint, req *CreateOrganizationRequest) (*models.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationError("organization name is required")
	}

	org := models.Organization{Name: name, CreatedBy: userID}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrganizationMember{
			OrganizationID: org.ID,
			UserID:         userID,
			Role:           models.OrgRoleAdmin,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	LogInfo("organization", "create", "Created organization "+name, &userID, "")
	return &org, nil
}

// ListMine returns the organizations userID belongs to with its role in each.
func (s *OrganizationService) ListMine(userID uint) ([]OrganizationItem, error) {
	var memberships []models.OrganizationMember
	if err := s.db.Preload("Organization").Where("user_id = ?", userID).
		Order("organization_id").Find(&memberships).Error; err != nil {
		return nil, err
	}

	items := make([]OrganizationItem, 0, len(memberships))
	for _, m := range memberships {
		if m.Organization == nil {
			continue
		}
		items = append(items, OrganizationItem{Organization: *m.Organization, Role: m.Role})
	}
	return items, nil
}

func (s *OrganizationService) membership(orgID, userID uint) (*models.OrganizationMember, error) {
	var m models.OrganizationMember
	err := s.db.Where("organization_id = ? AND user_id = ?", orgID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "organization", Key: fmt.Sprint(orgID)}
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Members lists the members of an organization userID belongs to.
func (s *OrganizationService) Members(orgID, userID uint) ([]OrganizationMemberItem, error) {
	if _, err := s.membership(orgID, userID); err != nil {
		return nil, err
	}

	var members []models.OrganizationMember
	if err := s.db.Preload("User").Where("organization_id = ?", orgID).
		Order("id").Find(&members).Error; err != nil {
		return nil, err
	}
	return memberItems(members), nil
}

func memberItems(members []models.OrganizationMember) []OrganizationMemberItem {
	items := make([]OrganizationMemberItem, 0, len(members))
	for _, m := range members {
		item := OrganizationMemberItem{UserID: m.UserID, Role: m.Role, Username: "Unknown User"}
		if m.User != nil {
			item.Username = m.User.Username
			item.Nickname = m.User.Nickname
		}
		items = append(items, item)
	}
	return items
}

// Invite adds an existing user by username as a member.
func (s *OrganizationService) Invite(orgID, inviterID uint, req *InviteMemberRequest) (*OrganizationMemberItem, error) {
	inviter, err := s.membership(orgID, inviterID)
	if err != nil {
		return nil, err
	}
	if inviter.Role != models.OrgRoleAdmin {
		return nil, &InvalidStateError{Msg: "only organization admins can invite members"}
	}

	var user models.User
	err = s.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Entity: "user", Key: req.Username}
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.membership(orgID, user.ID); err == nil {
		return nil, &InvalidStateError{Msg: user.Username + " is already a member"}
	}

	member := models.OrganizationMember{OrganizationID: orgID, UserID: user.ID, Role: models.OrgRoleMember}
	if err := s.db.Create(&member).Error; err != nil {
		return nil, err
	}

	LogInfo("organization", "invite", "Invited "+user.Username, &inviterID, fmt.Sprint(orgID))
	return &OrganizationMemberItem{UserID: user.ID, Username: user.Username, Nickname: user.Nickname, Role: member.Role}, nil
}
