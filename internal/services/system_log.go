package services

import (
	"sync"
	"time"

	"github.com/huangang/consultdesk/internal/models"
	"github.com/huangang/consultdesk/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

var (
	auditMu sync.RWMutex
	auditDB *gorm.DB
)

// InitSystemLogger enables audit rows. Without it the Log* helpers only
// write to the process log.
func InitSystemLogger(db *gorm.DB) {
	auditMu.Lock()
	defer auditMu.Unlock()
	auditDB = db
}

func LogInfo(module, action, message string, userID *uint, entityKey string) {
	writeLog(&models.SystemLog{Level: "info", Module: module, Action: action, Message: message, UserID: userID, EntityKey: entityKey})
}

func LogWarning(module, action, message string, userID *uint, entityKey string) {
	writeLog(&models.SystemLog{Level: "warning", Module: module, Action: action, Message: message, UserID: userID, EntityKey: entityKey})
}

func LogError(module, action, message string, userID *uint, entityKey string) {
	writeLog(&models.SystemLog{Level: "error", Module: module, Action: action, Message: message, UserID: userID, EntityKey: entityKey})
}

// RequestMeta identifies the HTTP request behind an audit row.
type RequestMeta struct {
	RequestID string
	IP        string
	UserAgent string
}

// LogRequest records an HTTP-level event.
func LogRequest(level, module, action, message string, userID *uint, meta RequestMeta) {
	writeLog(&models.SystemLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		UserID:    userID,
		RequestID: meta.RequestID,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})
}

func writeLog(row *models.SystemLog) {
	var event *zerolog.Event
	switch row.Level {
	case "warning":
		event = logger.Warn()
	case "error":
		event = logger.Error()
	default:
		event = logger.Info()
	}
	event.Str("module", row.Module).Str("action", row.Action).Str("key", row.EntityKey).
		Str("request_id", row.RequestID).Msg(row.Message)

	auditMu.RLock()
	db := auditDB
	auditMu.RUnlock()
	if db == nil {
		return
	}

	row.CreatedAt = time.Now()
	if err := db.Create(row).Error; err != nil {
		logger.Warn().Err(err).Msg("failed to write system log")
	}
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

// SystemLogListRequest filters the audit log. From and To are dates
// (YYYY-MM-DD), both inclusive.
type SystemLogListRequest struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	UserID    *uint  `form:"user_id"`
	EntityKey string `form:"entity_key"`
	RequestID string `form:"request_id"`
	From      string `form:"from"`
	To        string `form:"to"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

// normalize clamps paging and parses the date range.
func (r *SystemLogListRequest) normalize() (from, to time.Time, err error) {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.PageSize <= 0 || r.PageSize > 100 {
		r.PageSize = 20
	}
	if r.From != "" {
		if from, err = time.ParseInLocation(time.DateOnly, r.From, time.Local); err != nil {
			return from, to, validationError("from: expected YYYY-MM-DD")
		}
	}
	if r.To != "" {
		if to, err = time.ParseInLocation(time.DateOnly, r.To, time.Local); err != nil {
			return from, to, validationError("to: expected YYYY-MM-DD")
		}
		to = to.AddDate(0, 0, 1)
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return from, to, validationError("from must not be after to")
	}
	return from, to, nil
}

func (s *SystemLogService) List(req *SystemLogListRequest) (*SystemLogListResponse, error) {
	from, to, err := req.normalize()
	if err != nil {
		return nil, err
	}

	query := s.db.Model(&models.SystemLog{})
	for column, value := range map[string]string{
		"level":      req.Level,
		"module":     req.Module,
		"entity_key": req.EntityKey,
		"request_id": req.RequestID,
	} {
		if value != "" {
			query = query.Where(column+" = ?", value)
		}
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.UserID != nil {
		query = query.Where("user_id = ?", *req.UserID)
	}
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at < ?", to)
	}

	resp := &SystemLogListResponse{Page: req.Page, PageSize: req.PageSize}
	if err := query.Count(&resp.Total).Error; err != nil {
		return nil, err
	}
	err = query.Order("created_at DESC").Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).
		Find(&resp.Items).Error
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// CleanupOldLogs deletes rows older than retentionDays and returns how many
// were removed.
func (s *SystemLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// GetModules lists the distinct modules that have written logs.
func (s *SystemLogService) GetModules() ([]string, error) {
	var modules []string
	err := s.db.Model(&models.SystemLog{}).Distinct().Order("module").Pluck("module", &modules).Error
	return modules, err
}
