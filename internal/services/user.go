package services

import (
	"fmt"
	"strings"

	"github.com/huangang/consultdesk/internal/models"
	"gorm.io/gorm"
)

// UserService is the admin view of accounts.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UserListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Username string `form:"username"`
	AuthType string `form:"auth_type"`
	Role     string `form:"role"`
}

type UserListResponse struct {
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Items    []models.User `json:"items"`
}

type UpdateUserRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Nickname *string `json:"nickname"`
}

func (s *UserService) List(req *UserListRequest) (*UserListResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.User{})
	if req.Username != "" {
		query = query.Where("username LIKE ?", "%"+req.Username+"%")
	}
	if req.AuthType != "" {
		query = query.Where("auth_type = ?", req.AuthType)
	}
	if req.Role != "" {
		query = query.Where("role = ?", req.Role)
	}

	resp := &UserListResponse{Page: req.Page, PageSize: req.PageSize}
	if err := query.Count(&resp.Total).Error; err != nil {
		return nil, err
	}
	if err := query.Order("id ASC").Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).Find(&resp.Items).Error; err != nil {
		return nil, err
	}
	return resp, nil
}

// userUpdates turns req into column updates. It reports whether the update
// takes admin rights away (demotion or deactivation).
func userUpdates(req *UpdateUserRequest) (map[string]interface{}, bool, error) {
	updates := make(map[string]interface{})
	revokes := false
	if req.Role != nil {
		if *req.Role != models.RoleAdmin && *req.Role != models.RoleUser {
			return nil, false, validationError("invalid role, must be 'admin' or 'user'")
		}
		updates["role"] = *req.Role
		revokes = *req.Role != models.RoleAdmin
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
		revokes = revokes || !*req.IsActive
	}
	if req.Nickname != nil {
		updates["nickname"] = strings.TrimSpace(*req.Nickname)
	}
	if len(updates) == 0 {
		return nil, false, validationError("no fields to update")
	}
	return updates, revokes, nil
}

// Update changes another user's role, active flag or nickname. Admins cannot
// edit themselves, and the last active admin cannot be demoted or disabled.
func (s *UserService) Update(actorID, id uint, req *UpdateUserRequest) (*models.User, error) {
	if id == actorID {
		return nil, &InvalidStateError{Msg: "cannot modify your own account"}
	}
	updates, revokes, err := userUpdates(req)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		if revokes && user.IsAdmin() && user.IsActive {
			var admins int64
			if err := tx.Model(&models.User{}).
				Where("role = ? AND is_active = ?", models.RoleAdmin, true).
				Count(&admins).Error; err != nil {
				return err
			}
			if admins <= 1 {
				return &InvalidStateError{Msg: "cannot remove the last active admin"}
			}
		}
		return tx.Model(&user).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	LogInfo("user", "update", fmt.Sprintf("Updated user %s: %v", user.Username, updates), &actorID, user.Username)
	return &user, nil
}
