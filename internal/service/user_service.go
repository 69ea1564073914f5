package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vitale-labs/voucher-service/internal/model"
)

// UserService provides business logic for user management.
type UserService struct {
	userRepo    UserRepositoryInterface
	voucherRepo VoucherRepositoryInterface
}

// NewUserService creates a new UserService with the given repositories.
func NewUserService(userRepo UserRepositoryInterface, voucherRepo VoucherRepositoryInterface) *UserService {
	return &UserService{userRepo: userRepo, voucherRepo: voucherRepo}
}

// Create registers a new user. Returns ErrPhoneExists when the phone number
// is already registered.
func (s *UserService) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	user := &model.User{
		ID:        uuid.New(),
		Name:      req.Name,
		PhoneNo:   req.PhoneNo,
		City:      req.City,
		Role:      req.Role,
		CreatedAt: time.Now(),
	}
	user.UpdatedAt = user.CreatedAt

	if req.RegisteredBy != "" {
		registrarID, err := uuid.Parse(req.RegisteredBy)
		if err != nil {
			return nil, ErrInvalidRequest
		}
		registrar, err := s.userRepo.GetByID(ctx, registrarID)
		if err != nil {
			return nil, fmt.Errorf("get registrar: %w", err)
		}
		if registrar == nil {
			return nil, ErrUserNotFound
		}
		user.RegisteredBy = &registrar.ID
	}

	if err := s.userRepo.Insert(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get retrieves a user by ID. Returns ErrUserNotFound if absent.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Update applies the non-empty fields of the request to the user.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.City != "" {
		user.City = req.City
	}
	if req.Role != "" {
		user.Role = req.Role
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// List returns all users, newest first.
func (s *UserService) List(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.List(ctx)
}

// ListVouchers returns the vouchers claimed by a user, paginated, with an
// optional batch number prefix search and status filter.
func (s *UserService) ListVouchers(ctx context.Context, id uuid.UUID, search, status string, page, limit int) (*model.VoucherList, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	vouchers, total, err := s.voucherRepo.ListByUser(ctx, id, search, status, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list user vouchers: %w", err)
	}
	return &model.VoucherList{Vouchers: vouchers, Total: total, Page: page, Limit: limit}, nil
}
