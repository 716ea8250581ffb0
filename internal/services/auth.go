package services

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gracepointe/growthtrack-backend/internal/platform/apierr"
	"github.com/gracepointe/growthtrack-backend/internal/platform/logger"
	"github.com/gracepointe/growthtrack-backend/internal/repos"
	"github.com/gracepointe/growthtrack-backend/internal/requestdata"
	"github.com/gracepointe/growthtrack-backend/internal/types"
)

type LoginResult struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UserID      uuid.UUID  `json:"user_id"`
	Role        string     `json:"role"`
	GroupID     *uuid.UUID `json:"group_id,omitempty"`
}

type CreateOperatorInput struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Role      string     `json:"role"`
	GroupID   *uuid.UUID `json:"group_id"`
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	PrincipalFromToken(tokenString string) (*requestdata.Principal, error)
	CreateOperator(ctx context.Context, in CreateOperatorInput) (*types.User, error)
}

type authService struct {
	db        *gorm.DB
	log       *logger.Logger
	userRepo  repos.UserRepo
	groupRepo repos.GroupRepo
	secret    []byte
	tokenTTL  time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	groupRepo repos.GroupRepo,
	secret string,
	tokenTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		db:        db,
		log:       serviceLog,
		userRepo:  userRepo,
		groupRepo: groupRepo,
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
	}
}

type accessClaims struct {
	Role      string `json:"role"`
	GroupID   string `json:"group_id,omitempty"`
	GroupName string `json:"group_name,omitempty"`
	jwt.RegisteredClaims
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apierr.Unauthorized("invalid email or password")
	}
	user, err := s.userRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		// same response for unknown email and bad password
		s.log.Info("login rejected", "email", email)
		return nil, apierr.Unauthorized("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.log.Info("login rejected", "email", email)
		return nil, apierr.Unauthorized("invalid email or password")
	}

	now := time.Now()
	expiresAt := now.Add(s.tokenTTL)
	claims := accessClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if user.GroupID != nil {
		claims.GroupID = user.GroupID.String()
		if group, err := s.groupRepo.GetByID(ctx, nil, *user.GroupID); err == nil {
			claims.GroupName = group.Name
		}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, apierr.Internal(err)
	}

	s.log.Info("login ok", "user_id", user.ID, "role", user.Role)
	return &LoginResult{
		AccessToken: signed,
		ExpiresAt:   expiresAt,
		UserID:      user.ID,
		Role:        user.Role,
		GroupID:     user.GroupID,
	}, nil
}

func (s *authService) PrincipalFromToken(tokenString string) (*requestdata.Principal, error) {
	claims := &accessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierr.Unauthorized("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apierr.Unauthorized("invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apierr.Unauthorized("invalid token subject")
	}
	p := &requestdata.Principal{
		UserID:    userID,
		Role:      claims.Role,
		GroupName: claims.GroupName,
	}
	if claims.GroupID != "" {
		gid, err := uuid.Parse(claims.GroupID)
		if err != nil {
			return nil, apierr.Unauthorized("invalid token group")
		}
		p.GroupID = &gid
	}
	return p, nil
}

func (s *authService) CreateOperator(ctx context.Context, in CreateOperatorInput) (*types.User, error) {
	principal := requestdata.GetPrincipal(ctx)
	if principal == nil || principal.Role != types.RoleSuperAdmin {
		return nil, apierr.Forbidden("operator accounts may only be created by a superadmin")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, apierr.Validation("a valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, apierr.Validation("password must be at least 8 characters")
	}
	switch in.Role {
	case types.RoleSuperAdmin, types.RoleLeadPastor, types.RoleAdmin, types.RoleLeader:
	default:
		return nil, apierr.Validation("unknown role %q", in.Role)
	}
	if (in.Role == types.RoleAdmin || in.Role == types.RoleLeader) && in.GroupID == nil {
		return nil, apierr.Validation("role %q requires a group", in.Role)
	}
	if in.GroupID != nil {
		if _, err := s.groupRepo.GetByID(ctx, nil, *in.GroupID); err != nil {
			return nil, apierr.FromStore(err, "group %s", *in.GroupID)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.Internal(err)
	}
	user := &types.User{
		Email:     in.Email,
		Password:  string(hash),
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      in.Role,
		GroupID:   in.GroupID,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.userRepo.EmailExists(ctx, tx, user.Email)
		if err != nil {
			return apierr.Internal(err)
		}
		if taken {
			return apierr.Conflict("email %s is already registered", user.Email)
		}
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			return apierr.FromStore(err, "email %s is already registered", user.Email)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("operator created", "user_id", user.ID, "role", user.Role)
	return user, nil
}
