package services

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/onboardhub/engine/internal/models"
	"github.com/onboardhub/engine/internal/repository"
	appErr "github.com/onboardhub/engine/pkg/errors"
	"github.com/onboardhub/engine/pkg/logger"
	"go.uber.org/zap"
)

// Principal is an authenticated staff or CRM caller.
type Principal struct {
	ActorType models.ActorType `json:"actor_type"`
}

func (p Principal) Actor() Actor { return Actor{Type: p.ActorType} }

type AccessGate interface {
	AuthenticateStaff(secret string) (Principal, error)
	IssueStaffToken(secret string) (string, time.Time, error)
	ParseStaffToken(token string) (Principal, error)

	// AuthenticatePortal resolves a portal token to its project. Unknown tokens are NotFound.
	AuthenticatePortal(ctx context.Context, token string) (*models.Project, error)
	TaskForPortal(ctx context.Context, token string, taskID uuid.UUID) (*models.Project, *models.Task, error)
	SignatureForPortal(ctx context.Context, token string, signatureID uuid.UUID) (*models.Project, *models.Signature, error)
	FileForPortal(ctx context.Context, token string, fileID uuid.UUID) (*models.Project, *models.OnboardingFile, error)
}

type AccessGateConfig struct {
	AdminSecret string
	CRMSecret   string
	JWTSecret   []byte
	TokenTTL    time.Duration
}

type accessGate struct {
	cfg   AccessGateConfig
	repos *repository.Set
	now   func() time.Time
}

func NewAccessGate(cfg AccessGateConfig, repos *repository.Set) AccessGate {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 12 * time.Hour
	}
	return &accessGate{cfg: cfg, repos: repos, now: time.Now}
}

var _ AccessGate = (*accessGate)(nil)

func secretEqual(given, want string) bool {
	if want == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

func (g *accessGate) AuthenticateStaff(secret string) (Principal, error) {
	switch {
	case secretEqual(secret, g.cfg.AdminSecret):
		return Principal{ActorType: models.ActorStaff}, nil
	case secretEqual(secret, g.cfg.CRMSecret):
		return Principal{ActorType: models.ActorCRM}, nil
	}
	return Principal{}, appErr.Unauthorized("invalid api key")
}

type staffClaims struct {
	jwt.RegisteredClaims
}

func (g *accessGate) IssueStaffToken(secret string) (string, time.Time, error) {
	p, err := g.AuthenticateStaff(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	now := g.now()
	exp := now.Add(g.cfg.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, staffClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(p.ActorType),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(g.cfg.JWTSecret)
	if err != nil {
		return "", time.Time{}, appErr.Wrap(err, appErr.CodeInternal, "sign token failed")
	}
	return signed, exp, nil
}

func (g *accessGate) ParseStaffToken(tokenStr string) (Principal, error) {
	var claims staffClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.cfg.JWTSecret, nil
	}, jwt.WithTimeFunc(g.now), jwt.WithExpirationRequired())
	if err != nil {
		return Principal{}, appErr.Wrap(err, appErr.CodeUnauthorized, "invalid token")
	}
	at := models.ActorType(claims.Subject)
	if at != models.ActorStaff && at != models.ActorCRM {
		return Principal{}, appErr.Unauthorized("invalid token subject")
	}
	return Principal{ActorType: at}, nil
}

func (g *accessGate) AuthenticatePortal(ctx context.Context, token string) (*models.Project, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, appErr.NotFound("portal not found")
	}
	var p models.Project
	if err := g.repos.Projects.GetByToken(ctx, token, &p); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.NotFound("portal not found")
		}
		logger.L().Error("portal lookup failed", zap.Error(err))
		return nil, err
	}
	return &p, nil
}

func (g *accessGate) TaskForPortal(ctx context.Context, token string, taskID uuid.UUID) (*models.Project, *models.Task, error) {
	p, err := g.AuthenticatePortal(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	var t models.Task
	if err := g.repos.Tasks.GetByID(ctx, taskID, &t); err != nil {
		return nil, nil, hideNotFound(err, "task not found")
	}
	if t.ProjectID != p.ID || t.Visibility != models.VisibilityExternal {
		logger.L().Warn("portal task outside project", zap.String("project_id", p.ID.String()), zap.String("task_id", taskID.String()))
		return nil, nil, appErr.NotFound("task not found")
	}
	return p, &t, nil
}

func (g *accessGate) SignatureForPortal(ctx context.Context, token string, signatureID uuid.UUID) (*models.Project, *models.Signature, error) {
	p, err := g.AuthenticatePortal(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	var s models.Signature
	if err := g.repos.Signatures.GetByID(ctx, signatureID, &s); err != nil {
		return nil, nil, hideNotFound(err, "signature not found")
	}
	if s.ProjectID != p.ID {
		logger.L().Warn("portal signature outside project", zap.String("project_id", p.ID.String()), zap.String("signature_id", signatureID.String()))
		return nil, nil, appErr.NotFound("signature not found")
	}
	return p, &s, nil
}

func (g *accessGate) FileForPortal(ctx context.Context, token string, fileID uuid.UUID) (*models.Project, *models.OnboardingFile, error) {
	p, err := g.AuthenticatePortal(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	var f models.OnboardingFile
	if err := g.repos.Files.GetByID(ctx, fileID, &f); err != nil {
		return nil, nil, hideNotFound(err, "file not found")
	}
	if f.ProjectID != p.ID {
		logger.L().Warn("portal file outside project", zap.String("project_id", p.ID.String()), zap.String("file_id", fileID.String()))
		return nil, nil, appErr.NotFound("file not found")
	}
	return p, &f, nil
}

func hideNotFound(err error, msg string) error {
	if appErr.IsCode(err, appErr.CodeNotFound) {
		return appErr.NotFound(msg)
	}
	return err
}
