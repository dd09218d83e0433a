package services

import (
	"errors"
	"strings"
	"time"

	"github.com/huangang/consultdesk/internal/config"
	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrUsernameTaken      = errors.New("username already exists")
)

// authenticator checks one kind of credential and returns the local user.
type authenticator func(username, password string) (*models.User, error)

// AuthService identifies the owner of every request.
type AuthService struct {
	db          *gorm.DB
	ldapService *LDAPService
	jwtConfig   *config.JWTConfig
	methods     map[string]authenticator
}

func NewAuthService(db *gorm.DB, jwtCfg *config.JWTConfig, ldapCfg *config.LDAPConfig) *AuthService {
	s := &AuthService{
		db:          db,
		ldapService: NewLDAPService(ldapCfg),
		jwtConfig:   jwtCfg,
	}
	s.methods = map[string]authenticator{
		models.AuthLocal: s.localAuth,
		models.AuthLDAP:  s.ldapAuth,
	}
	return s
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"auth_type"` // local, ldap
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

type LoginResponse struct {
	Token    string       `json:"token"`
	User     *models.User `json:"user"`
	ExpireAt time.Time    `json:"expire_at"`
}

// Login authenticates against the local table or LDAP and issues a token.
// Failed attempts are audited under the attempted username.
func (s *AuthService) Login(req *LoginRequest) (*LoginResponse, error) {
	if req.AuthType == "" {
		req.AuthType = models.AuthLocal
	}
	authenticate, ok := s.methods[req.AuthType]
	if !ok {
		return nil, validationError("invalid auth type " + req.AuthType)
	}

	user, err := authenticate(req.Username, req.Password)
	if err != nil {
		LogWarning("auth", "login", "Login failed: "+err.Error(), nil, req.Username)
		return nil, err
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.db.Model(user).Update("last_login", now).Error; err != nil {
		return nil, err
	}
	LogInfo("auth", "login", "Signed in via "+req.AuthType, &user.ID, user.Username)
	return s.issue(user, now)
}

func (s *AuthService) issue(user *models.User, now time.Time) (*LoginResponse, error) {
	hours := s.jwtConfig.ExpireHour
	if hours <= 0 {
		hours = 24
	}
	token, err := utils.GenerateToken(user.ID, user.Username, user.Role, hours)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: token, User: user, ExpireAt: now.Add(time.Duration(hours) * time.Hour)}, nil
}

// ValidateRegistration checks a registration before it touches the store.
func ValidateRegistration(req *RegisterRequest) error {
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 {
		return validationError("username must be at least 3 characters")
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return validationError(err.Error())
	}
	if req.Email != "" {
		email, err := models.NormalizeEmail(req.Email)
		if err != nil {
			return err
		}
		req.Email = email
	}
	return nil
}

// Register creates a local user and signs it in.
func (s *AuthService) Register(req *RegisterRequest) (*LoginResponse, error) {
	if err := ValidateRegistration(req); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("username = ?", req.Username).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Username: req.Username,
		Password: hashed,
		Email:    req.Email,
		Nickname: req.Nickname,
		Role:     models.RoleUser,
		AuthType: models.AuthLocal,
		IsActive: true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}
	LogInfo("auth", "register", "Registered", &user.ID, user.Username)
	return s.issue(&user, time.Now())
}

func (s *AuthService) localAuth(username, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ? AND auth_type = ?", username, models.AuthLocal).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// ldapAuth binds against the directory. The local row is created on first
// sign-in and its email and nickname follow the directory afterwards.
func (s *AuthService) ldapAuth(username, password string) (*models.User, error) {
	entry, err := s.ldapService.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	var user models.User
	err = s.db.Where(models.User{Username: entry.Username, AuthType: models.AuthLDAP}).
		Attrs(models.User{Role: models.RoleUser, IsActive: true}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserDisabled
	}

	if user.Email != entry.Email || user.Nickname != entry.Nickname {
		user.Email, user.Nickname = entry.Email, entry.Nickname
		if err := s.db.Model(&user).Updates(map[string]interface{}{
			"email":    entry.Email,
			"nickname": entry.Nickname,
		}).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) IsLDAPEnabled() bool {
	return s.ldapService.IsEnabled()
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword is only available to local accounts.
func (s *AuthService) ChangePassword(userID uint, req *ChangePasswordRequest) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user.IsLDAP() {
		return &InvalidStateError{Msg: "password of LDAP users is managed by the directory"}
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return validationError(err.Error())
	}
	if !utils.CheckPassword(req.OldPassword, user.Password) {
		return ErrInvalidCredentials
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.db.Model(user).Update("password", hashed).Error; err != nil {
		return err
	}
	LogInfo("auth", "change_password", "Password changed", &userID, user.Username)
	return nil
}
