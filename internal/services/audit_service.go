package services

import (
	"github.com/sirupsen/logrus"

	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/internal/utils"
)

// AuditEvent is a security relevant action written to the audit log
type AuditEvent struct {
	Action    string // login_success, login_failed, logout, token_refresh
	Role      models.Role
	Subject   string // roll number for students, role name for staff
	IPAddress string
	UserAgent string
	Details   logrus.Fields
}

// AuditService writes security events as structured log entries
type AuditService struct {
	logger *logrus.Logger
}

// NewAuditService creates a new audit service
func NewAuditService(logger *logrus.Logger) *AuditService {
	return &AuditService{logger: logger}
}

// LogLogin logs a login attempt, successful or not
func (s *AuditService) LogLogin(role models.Role, subject, ipAddress, userAgent string, success bool, reason string) {
	action := "login_success"
	details := logrus.Fields{}
	if !success {
		action = "login_failed"
		if reason != "" {
			details["failure_reason"] = reason
		}
	}

	s.logEvent(AuditEvent{
		Action:    action,
		Role:      role,
		Subject:   subject,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Details:   details,
	})
}

// LogLogout logs a logout event
func (s *AuditService) LogLogout(role models.Role, subject, ipAddress, userAgent string) {
	s.logEvent(AuditEvent{
		Action:    "logout",
		Role:      role,
		Subject:   subject,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}

// LogTokenRefresh logs a refresh token usage event
func (s *AuditService) LogTokenRefresh(role models.Role, subject, ipAddress, userAgent string, success bool) {
	action := "token_refresh_success"
	if !success {
		action = "token_refresh_failed"
	}
	s.logEvent(AuditEvent{
		Action:    action,
		Role:      role,
		Subject:   subject,
		IPAddress: ipAddress,
		UserAgent: userAgent,
	})
}

func (s *AuditService) logEvent(event AuditEvent) {
	fields := logrus.Fields{
		"audit":       true,
		"action":      event.Action,
		"role":        event.Role,
		"subject":     event.Subject,
		"ip_address":  event.IPAddress,
		"device_info": utils.ParseUserAgent(event.UserAgent),
	}
	for k, v := range event.Details {
		fields[k] = v
	}

	entry := s.logger.WithFields(fields)
	if event.Action == "login_failed" || event.Action == "token_refresh_failed" {
		entry.Warn("audit event")
		return
	}
	entry.Info("audit event")
}
