package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/vitale-labs/voucher-service/internal/model"
	"github.com/vitale-labs/voucher-service/pkg/database"
)

// batchNoPrefix is the human-facing voucher identifier prefix.
const batchNoPrefix = "RSV"

// batchNoRetries bounds regeneration when a generated batch number collides
// with a pre-existing voucher.
const batchNoRetries = 5

// VoucherRepositoryInterface defines the interface for voucher data access.
type VoucherRepositoryInterface interface {
	Insert(ctx context.Context, q database.TxQuerier, v *model.Voucher) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error)
	GetByBatchNoForUpdate(ctx context.Context, tx database.TxQuerier, batchNo string) (*model.Voucher, error)
	MarkClaimed(ctx context.Context, tx database.TxQuerier, voucherID, userID uuid.UUID, claimedAt time.Time) error
	UpdateStatus(ctx context.Context, voucherID uuid.UUID, fromStatus, toStatus string) (bool, error)
	List(ctx context.Context, status string, limit, offset int) ([]*model.Voucher, int, error)
	ListByUser(ctx context.Context, userID uuid.UUID, search, status string, limit, offset int) ([]*model.Voucher, int, error)
}

// UserRepositoryInterface defines the interface for user data access.
type UserRepositoryInterface interface {
	Insert(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByPhone(ctx context.Context, phoneNo string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*model.User, error)
}

// ProductRepositoryInterface defines the interface for product data access.
type ProductRepositoryInterface interface {
	Insert(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	Update(ctx context.Context, p *model.Product) error
	List(ctx context.Context) ([]*model.Product, error)
	ListInStock(ctx context.Context) ([]*model.Product, error)
	DecrementStock(ctx context.Context, id uuid.UUID) (bool, error)
}

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// VoucherService provides business logic for voucher issuance, claiming, and
// lifecycle transitions.
type VoucherService struct {
	pool        TxBeginner
	exec        database.TxQuerier
	voucherRepo VoucherRepositoryInterface
	userRepo    UserRepositoryInterface
	productRepo ProductRepositoryInterface
}

// NewVoucherService creates a new VoucherService with the given pool and
// repositories.
func NewVoucherService(pool *pgxpool.Pool, voucherRepo VoucherRepositoryInterface, userRepo UserRepositoryInterface, productRepo ProductRepositoryInterface) *VoucherService {
	return &VoucherService{
		pool:        pool,
		exec:        pool,
		voucherRepo: voucherRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
	}
}

// NewVoucherServiceWithTx creates a VoucherService with custom transaction
// primitives. Primarily used for testing.
func NewVoucherServiceWithTx(pool TxBeginner, exec database.TxQuerier, voucherRepo VoucherRepositoryInterface, userRepo UserRepositoryInterface, productRepo ProductRepositoryInterface) *VoucherService {
	return &VoucherService{
		pool:        pool,
		exec:        exec,
		voucherRepo: voucherRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
	}
}

// newBatchNo generates a batch number of the form RSV-XXXXXXXX with 8
// cryptographically random digits.
func newBatchNo() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("generate batch number: %w", err)
	}
	return fmt.Sprintf("%s-%08d", batchNoPrefix, n.Int64()), nil
}

// Create creates a single voucher with the given batch number. When a product
// ID is supplied the product must exist; its name is denormalized onto the
// voucher. Returns ErrBatchNoExists on a duplicate batch number.
func (s *VoucherService) Create(ctx context.Context, req *model.CreateVoucherRequest) (*model.Voucher, error) {
	if req == nil {
		return nil, ErrInvalidRequest
	}

	v := &model.Voucher{
		ID:        uuid.New(),
		BatchNo:   req.BatchNo,
		Status:    model.StatusUnclaimed,
		CreatedAt: time.Now(),
	}
	if req.Barcode != "" {
		barcode := req.Barcode
		v.Barcode = &barcode
	}
	if req.ProductID != "" {
		productID, err := uuid.Parse(req.ProductID)
		if err != nil {
			return nil, ErrInvalidRequest
		}
		product, err := s.productRepo.GetByID(ctx, productID)
		if err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
		v.ProductID = &product.ID
		v.ProductName = &product.Name
	}

	if err := s.voucherRepo.Insert(ctx, s.exec, v); err != nil {
		return nil, err
	}
	return v, nil
}

// List returns vouchers with an optional status filter, newest first.
func (s *VoucherService) List(ctx context.Context, status string, page, limit int) (*model.VoucherList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	vouchers, total, err := s.voucherRepo.List(ctx, status, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list vouchers: %w", err)
	}
	return &model.VoucherList{Vouchers: vouchers, Total: total, Page: page, Limit: limit}, nil
}

// BulkGenerate produces up to req.Count vouchers with unique batch numbers.
// When product assignment is requested, each voucher takes one unit of stock
// from a randomly chosen in-stock product; generation stops early once all
// stock is gone. Individual insert failures are logged and skipped, so the
// response may report fewer vouchers than requested.
func (s *VoucherService) BulkGenerate(ctx context.Context, req *model.BulkGenerateRequest) (*model.BulkGenerateResponse, error) {
	if req == nil || req.Count == nil {
		return nil, ErrInvalidRequest
	}
	count := *req.Count
	if count < 1 || count > 1000 {
		return nil, ErrInvalidCount
	}

	var candidates []*model.Product
	if req.AssignProducts {
		products, err := s.productRepo.ListInStock(ctx)
		if err != nil {
			return nil, fmt.Errorf("list in-stock products: %w", err)
		}
		candidates = products
	}

	resp := &model.BulkGenerateResponse{Requested: count, Vouchers: []*model.Voucher{}}
	seen := make(map[string]struct{}, count)

	for i := 0; i < count; i++ {
		var product *model.Product
		if req.AssignProducts {
			product = s.takeStock(ctx, &candidates)
			if product == nil {
				log.Warn().
					Int("requested", count).
					Int("generated", resp.Generated).
					Msg("bulk generation stopped early: no products in stock")
				break
			}
		}

		v, err := s.insertGenerated(ctx, seen, product)
		if err != nil {
			log.Error().Err(err).Int("index", i).Msg("failed to generate voucher, skipping")
			continue
		}
		resp.Vouchers = append(resp.Vouchers, v)
		resp.Generated++
	}

	return resp, nil
}

// takeStock picks a random candidate product and decrements its stock with a
// conditional update. Products whose stock is gone (possibly taken by a
// concurrent generator) are dropped from the candidate list. Returns nil when
// nothing is in stock.
func (s *VoucherService) takeStock(ctx context.Context, candidates *[]*model.Product) *model.Product {
	for len(*candidates) > 0 {
		idx := mrand.Intn(len(*candidates))
		p := (*candidates)[idx]

		ok, err := s.productRepo.DecrementStock(ctx, p.ID)
		if err != nil {
			log.Error().Err(err).Str("product_id", p.ID.String()).Msg("failed to decrement stock")
			return nil
		}
		if ok {
			p.Quantity--
			if p.Quantity <= 0 {
				*candidates = append((*candidates)[:idx], (*candidates)[idx+1:]...)
			}
			return p
		}
		// Lost the race for the last unit; stop considering this product.
		*candidates = append((*candidates)[:idx], (*candidates)[idx+1:]...)
	}
	return nil
}

// insertGenerated creates one voucher with a batch number unique both within
// this batch and against pre-existing vouchers, regenerating on collision.
func (s *VoucherService) insertGenerated(ctx context.Context, seen map[string]struct{}, product *model.Product) (*model.Voucher, error) {
	for attempt := 0; attempt < batchNoRetries; attempt++ {
		batchNo, err := newBatchNo()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[batchNo]; dup {
			continue
		}

		v := &model.Voucher{
			ID:        uuid.New(),
			BatchNo:   batchNo,
			Status:    model.StatusUnclaimed,
			CreatedAt: time.Now(),
		}
		if product != nil {
			v.ProductID = &product.ID
			v.ProductName = &product.Name
		}

		err = s.voucherRepo.Insert(ctx, s.exec, v)
		if err == nil {
			seen[batchNo] = struct{}{}
			return v, nil
		}
		if errors.Is(err, ErrBatchNoExists) {
			continue // collision with an existing voucher, regenerate
		}
		return nil, err
	}
	return nil, fmt.Errorf("exhausted %d batch number attempts", batchNoRetries)
}

// Claim claims the voucher with the given batch number for the retailer with
// the given phone number. The voucher row is locked for the duration of the
// transaction, so concurrent claims of the same voucher serialize and exactly
// one succeeds.
// Returns:
//   - ErrUserNotFound if no user has the phone number
//   - ErrNotRetailer if the user's role is not RETAILER
//   - ErrVoucherNotFound if no voucher has the batch number
//   - ErrAlreadyClaimed if the voucher is already claimed
//   - ErrVoucherExpired if the voucher is expired
func (s *VoucherService) Claim(ctx context.Context, phoneNo, batchNo string) (*model.Voucher, error) {
	user, err := s.userRepo.GetByPhone(ctx, phoneNo)
	if err != nil {
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Role != model.RoleRetailer {
		return nil, ErrNotRetailer
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	voucher, err := s.voucherRepo.GetByBatchNoForUpdate(ctx, tx, batchNo)
	if err != nil {
		if errors.Is(err, ErrVoucherNotFound) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("get voucher for update: %w", err)
	}

	switch voucher.Status {
	case model.StatusClaimed:
		return nil, ErrAlreadyClaimed
	case model.StatusExpired:
		return nil, ErrVoucherExpired
	}

	claimedAt := time.Now()
	if err := s.voucherRepo.MarkClaimed(ctx, tx, voucher.ID, user.ID, claimedAt); err != nil {
		return nil, fmt.Errorf("mark claimed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	voucher.Status = model.StatusClaimed
	voucher.ClaimedBy = &user.ID
	voucher.ClaimedAt = &claimedAt
	voucher.UpdatedAt = &claimedAt
	return voucher, nil
}

// allowedPrior maps a target status to the only status it may be reached
// from: UNCLAIMED -> CLAIMED -> EXPIRED -> UNCLAIMED (reactivate).
var allowedPrior = map[string]string{
	model.StatusClaimed:   model.StatusUnclaimed,
	model.StatusExpired:   model.StatusClaimed,
	model.StatusUnclaimed: model.StatusExpired,
}

// UpdateStatus transitions a voucher along the lifecycle. Any transition not
// in the lifecycle (including a no-op to the current status) is rejected with
// ErrInvalidTransition. The write is conditional on the expected prior
// status, so a concurrent transition causes a rejection rather than a lost
// update.
func (s *VoucherService) UpdateStatus(ctx context.Context, voucherID uuid.UUID, newStatus string) (*model.Voucher, error) {
	prior, ok := allowedPrior[newStatus]
	if !ok {
		return nil, ErrInvalidTransition
	}

	voucher, err := s.voucherRepo.GetByID(ctx, voucherID)
	if err != nil {
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if voucher == nil {
		return nil, ErrVoucherNotFound
	}
	if voucher.Status != prior {
		return nil, ErrInvalidTransition
	}

	applied, err := s.voucherRepo.UpdateStatus(ctx, voucherID, prior, newStatus)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if !applied {
		// A concurrent transition moved the voucher first.
		return nil, ErrInvalidTransition
	}

	updated, err := s.voucherRepo.GetByID(ctx, voucherID)
	if err != nil {
		return nil, fmt.Errorf("reload voucher: %w", err)
	}
	if updated == nil {
		return nil, ErrVoucherNotFound
	}
	return updated, nil
}
