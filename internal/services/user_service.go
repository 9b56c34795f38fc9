package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"travelsync/internal/models"
	"travelsync/internal/repositories/postgres"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// UserStore is the persistence surface the user service needs.
type UserStore interface {
	Create(user *models.User) error
	FindByEmail(email string) (*models.User, error)
	FindByID(id uint) (*models.User, error)
	Update(user *models.User) error
	SearchByUsername(username string) ([]models.User, error)
}

type UserService struct {
	repo      UserStore
	jwtSecret string
	jwtExpire time.Duration
}

func NewUserService(repo UserStore, jwtSecret string, jwtExpire time.Duration) *UserService {
	return &UserService{
		repo:      repo,
		jwtSecret: jwtSecret,
		jwtExpire: jwtExpire,
	}
}

func (s *UserService) generateJWT(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"email":    user.Email,
		"username": user.Username,
		"exp":      time.Now().Add(s.jwtExpire).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *UserService) Register(req *models.RegisterRequest) (*models.UserResponse, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}

	if err := s.repo.Create(&user); err != nil {
		if errors.Is(err, postgres.ErrEmailTaken) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", "userID", user.ID, "email", user.Email)
	return userResponse(&user), nil
}

func (s *UserService) Login(req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.repo.FindByEmail(req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.LoginResponse{
		Token: token,
		User:  *userResponse(user),
	}, nil
}

func (s *UserService) GetProfile(userID uint) (*models.UserResponse, error) {
	user, err := s.repo.FindByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return userResponse(user), nil
}

func (s *UserService) UpdateProfile(userID uint, req *models.UpdateProfileRequest) (*models.UserResponse, error) {
	user, err := s.repo.FindByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		return nil, ErrWrongPassword
	}

	if req.Username != nil {
		user.Username = *req.Username
	}
	if req.Avatar != nil {
		user.Avatar = *req.Avatar
	}
	if req.Password != nil {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash new password: %w", err)
		}
		user.Password = string(hashedPassword)
	}

	if err := s.repo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return userResponse(user), nil
}

// SetAvatar records the stored avatar URL after a successful upload.
func (s *UserService) SetAvatar(userID uint, url string) (*models.UserResponse, error) {
	user, err := s.repo.FindByID(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	user.Avatar = url
	if err := s.repo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}
	return userResponse(user), nil
}

func (s *UserService) SearchByUsername(username string) ([]models.UserResponse, error) {
	users, err := s.repo.SearchByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return lo.Map(users, func(user models.User, _ int) models.UserResponse {
		return *userResponse(&user)
	}), nil
}

func userResponse(user *models.User) *models.UserResponse {
	return &models.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		Avatar:    user.Avatar,
	}
}
