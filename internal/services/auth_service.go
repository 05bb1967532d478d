package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vgnt/transport-portal/internal/config"
	"github.com/vgnt/transport-portal/internal/database"
	"github.com/vgnt/transport-portal/internal/models"
	"github.com/vgnt/transport-portal/pkg/jwt"
)

const managementDisplayName = "Transport Management"

// StudentLookup finds the student matching a login claim
type StudentLookup interface {
	GetByNameAndRoll(ctx context.Context, upperName, roll string) (*models.StudentRecord, error)
}

// LoginMetrics counts login attempts per role and result
type LoginMetrics interface {
	LoginAttempt(role, result string)
}

// LoginRequest is a login attempt. Name and Roll are only read for students,
// Password only for staff.
type LoginRequest struct {
	Role      models.Role
	Name      string
	Roll      string
	Password  string
	IPAddress string
	UserAgent string
}

// LoginResult is the established session
type LoginResult struct {
	Profile      models.Profile
	SessionID    uuid.UUID
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// RefreshResult carries a freshly issued access token
type RefreshResult struct {
	Identity    jwt.Identity
	AccessToken string
	ExpiresIn   int64
}

// AuthService decides who may open which dashboard
type AuthService struct {
	students   StudentLookup
	tokens     *jwt.Service
	staff      config.StaffConfig
	driverName string
	audit      *AuditService
	metrics    LoginMetrics
	logger     *logrus.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	students StudentLookup,
	tokens *jwt.Service,
	staff config.StaffConfig,
	driverName string,
	audit *AuditService,
	metrics LoginMetrics,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		students:   students,
		tokens:     tokens,
		staff:      staff,
		driverName: driverName,
		audit:      audit,
		metrics:    metrics,
		logger:     logger,
	}
}

// Login checks the claim for the requested role and issues a session.
// Every rejected claim returns ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var (
		profile models.Profile
		err     error
	)

	switch req.Role {
	case models.RoleStudent:
		profile, err = s.authenticateStudent(ctx, req.Name, req.Roll)
	case models.RoleDriver:
		err = checkStaffPassword(s.staff.DriverPasswordHash, req.Password)
		profile = models.Profile{Name: s.driverName, Role: models.RoleDriver}
	case models.RoleManagement:
		err = checkStaffPassword(s.staff.ManagementPasswordHash, req.Password)
		profile = models.Profile{Name: managementDisplayName, Role: models.RoleManagement}
	default:
		err = ErrInvalidCredentials
	}

	subject := auditSubject(req)
	if err != nil {
		s.record(req, subject, false, err.Error())
		return nil, err
	}

	id := jwt.Identity{
		SessionID: uuid.New(),
		Name:      profile.Name,
		Roll:      profile.Roll,
		Role:      string(profile.Role),
	}

	accessToken, err := s.tokens.GenerateAccessToken(id)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(id)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	s.record(req, subject, true, "")

	return &LoginResult{
		Profile:      profile,
		SessionID:    id.SessionID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokens.AccessTokenExpiry().Seconds()),
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token
func (s *AuthService) Refresh(refreshToken, ipAddress, userAgent string) (*RefreshResult, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		s.audit.LogTokenRefresh("", "", ipAddress, userAgent, false)
		return nil, ErrInvalidToken
	}

	id := claims.Identity()
	accessToken, err := s.tokens.GenerateAccessToken(id)
	if err != nil {
		return nil, fmt.Errorf("failed to issue access token: %w", err)
	}

	s.audit.LogTokenRefresh(models.Role(id.Role), subjectFor(id), ipAddress, userAgent, true)

	return &RefreshResult{
		Identity:    id,
		AccessToken: accessToken,
		ExpiresIn:   int64(s.tokens.AccessTokenExpiry().Seconds()),
	}, nil
}

func (s *AuthService) authenticateStudent(ctx context.Context, name, roll string) (models.Profile, error) {
	upperName := strings.ToUpper(strings.TrimSpace(name))
	roll = strings.TrimSpace(roll)
	if upperName == "" || roll == "" {
		return models.Profile{}, ErrInvalidCredentials
	}

	student, err := s.students.GetByNameAndRoll(ctx, upperName, roll)
	switch {
	case err == nil:
		return student.Profile(), nil
	case errors.Is(err, database.ErrStudentNotFound), errors.Is(err, database.ErrAmbiguousStudent):
		return models.Profile{}, ErrInvalidCredentials
	default:
		// a store failure reads as "no match" to the caller
		s.logger.WithError(err).WithField("roll", roll).Error("Student lookup failed")
		return models.Profile{}, ErrInvalidCredentials
	}
}

func checkStaffPassword(hash, password string) error {
	if hash == "" {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *AuthService) record(req LoginRequest, subject string, success bool, reason string) {
	result := "success"
	if !success {
		result = "failure"
	}
	if s.metrics != nil {
		s.metrics.LoginAttempt(string(req.Role), result)
	}
	s.audit.LogLogin(req.Role, subject, req.IPAddress, req.UserAgent, success, reason)
}

func auditSubject(req LoginRequest) string {
	if req.Role == models.RoleStudent {
		return strings.TrimSpace(req.Roll)
	}
	return string(req.Role)
}

func subjectFor(id jwt.Identity) string {
	if id.Roll != "" {
		return id.Roll
	}
	return id.Role
}
