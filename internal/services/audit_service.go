package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"papertrade/internal/logger"
	"papertrade/internal/models"
)

// Audit actions recorded by handlers.
const (
	AuditRegister      = "REGISTER"
	AuditLogin         = "LOGIN"
	AuditUpdateProfile = "UPDATE_PROFILE"
	AuditTrade         = "TRADE"
	AuditRefreshStocks = "REFRESH_STOCKS"
	AuditSnapshots     = "RECORD_SNAPSHOTS"
)

// auditService appends rows to the audit log.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Failures are logged and swallowed so that
// auditing never fails the request that triggered it.
func (s *auditService) Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]any) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      encodeChanges(action, changes),
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

func encodeChanges(action string, changes map[string]any) string {
	if len(changes) == 0 {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}
