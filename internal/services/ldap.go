package services

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/huangang/consultdesk/internal/config"
)

var ErrLDAPDisabled = errors.New("LDAP is not enabled")

type LDAPService struct {
	config *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) *LDAPService {
	return &LDAPService{config: cfg}
}

func (s *LDAPService) IsEnabled() bool {
	return s.config != nil && s.config.Enabled
}

// URL is the directory address derived from the config.
func (s *LDAPService) URL() string {
	scheme := "ldap"
	if s.config.UseSSL {
		scheme = "ldaps"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, s.config.Host, s.config.Port)
}

const ldapDialTimeout = 10 * time.Second

var ldapAttributes = []string{"dn", "cn", "displayName", "mail", "uid", "sAMAccountName"}

// Authenticate finds the user with the service account and then binds as
// that user to check the password. Unknown users and wrong passwords are
// both ErrInvalidCredentials.
func (s *LDAPService) Authenticate(username, password string) (*LDAPUser, error) {
	if !s.IsEnabled() {
		return nil, ErrLDAPDisabled
	}
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	opts := []ldap.DialOpt{ldap.DialWithDialer(&net.Dialer{Timeout: ldapDialTimeout})}
	if s.config.UseSSL {
		opts = append(opts, ldap.DialWithTLSConfig(&tls.Config{ServerName: s.config.Host}))
	}
	conn, err := ldap.DialURL(s.URL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to LDAP: %w", err)
	}
	defer conn.Close()

	if s.config.BindDN != "" {
		if err := conn.Bind(s.config.BindDN, s.config.BindPassword); err != nil {
			return nil, fmt.Errorf("LDAP service bind: %w", err)
		}
	}

	result, err := conn.Search(ldap.NewSearchRequest(
		s.config.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 2, 0, false,
		s.Filter(username), ldapAttributes, nil,
	))
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, fmt.Errorf("LDAP search: %w", err)
	}
	if result == nil || len(result.Entries) != 1 {
		return nil, ErrInvalidCredentials
	}

	entry := result.Entries[0]
	if err := conn.Bind(entry.DN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("LDAP user bind: %w", err)
	}
	return userFromEntry(entry, username), nil
}

// userFromEntry reads the account from OpenLDAP or Active Directory
// attributes, falling back to the name the user typed.
func userFromEntry(entry *ldap.Entry, typed string) *LDAPUser {
	user := &LDAPUser{
		DN:       entry.DN,
		Username: firstAttr(entry, "uid", "sAMAccountName"),
		Email:    entry.GetAttributeValue("mail"),
		Nickname: firstAttr(entry, "displayName", "cn"),
	}
	if user.Username == "" {
		user.Username = typed
	}
	return user
}

func firstAttr(entry *ldap.Entry, names ...string) string {
	for _, name := range names {
		if v := entry.GetAttributeValue(name); v != "" {
			return v
		}
	}
	return ""
}

// Filter renders the configured user filter with an escaped username.
func (s *LDAPService) Filter(username string) string {
	return fmt.Sprintf(s.config.UserFilter, ldap.EscapeFilter(username))
}

type LDAPUser struct {
	DN       string
	Username string
	Email    string
	Nickname string
}
