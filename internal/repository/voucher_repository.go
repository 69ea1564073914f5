package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitale-labs/voucher-service/internal/model"
	"github.com/vitale-labs/voucher-service/internal/service"
	"github.com/vitale-labs/voucher-service/pkg/database"
)

const voucherColumns = `id, batch_no, status, product_id, product_name, barcode, claimed_by, created_at, claimed_at, updated_at`

// PoolInterface defines the database operations needed by repositories.
// This allows for easier testing with mocks.
type PoolInterface interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// VoucherRepository provides data access for vouchers using pgx.
type VoucherRepository struct {
	pool PoolInterface
}

// NewVoucherRepository creates a new VoucherRepository with the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// NewVoucherRepositoryWithPool creates a new VoucherRepository with a custom
// pool interface. This is primarily used for testing.
func NewVoucherRepositoryWithPool(pool PoolInterface) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	var v model.Voucher
	err := row.Scan(
		&v.ID,
		&v.BatchNo,
		&v.Status,
		&v.ProductID,
		&v.ProductName,
		&v.Barcode,
		&v.ClaimedBy,
		&v.CreatedAt,
		&v.ClaimedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Insert inserts a new voucher. The insert may run on the pool or inside a
// transaction, so it accepts a TxQuerier.
// Returns service.ErrBatchNoExists if the batch number is already taken.
func (r *VoucherRepository) Insert(ctx context.Context, q database.TxQuerier, v *model.Voucher) error {
	_, err := q.Exec(ctx,
		`INSERT INTO vouchers (id, batch_no, status, product_id, product_name, barcode, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.BatchNo, v.Status, v.ProductID, v.ProductName, v.Barcode, v.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.ErrBatchNoExists
		}
		return fmt.Errorf("insert voucher %s: %w", v.BatchNo, err)
	}
	return nil
}

// GetByID retrieves a voucher by its ID.
// Returns nil, nil if the voucher is not found (service layer handles this).
func (r *VoucherRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Voucher, error) {
	v, err := scanVoucher(r.pool.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher %s: %w", id, err)
	}
	return v, nil
}

// GetByBatchNoForUpdate retrieves a voucher by batch number with a row lock
// (SELECT FOR UPDATE). The lock is held until the transaction completes,
// serializing concurrent claims of the same voucher.
// Returns service.ErrVoucherNotFound if the voucher doesn't exist.
func (r *VoucherRepository) GetByBatchNoForUpdate(ctx context.Context, tx database.TxQuerier, batchNo string) (*model.Voucher, error) {
	v, err := scanVoucher(tx.QueryRow(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE batch_no = $1 FOR UPDATE`, batchNo))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("get voucher for update %s: %w", batchNo, err)
	}
	return v, nil
}

// MarkClaimed transitions a voucher to CLAIMED inside a transaction. The
// status predicate guards against a concurrent claim that committed between
// our read and this write; zero rows affected means the claim lost the race.
func (r *VoucherRepository) MarkClaimed(ctx context.Context, tx database.TxQuerier, voucherID, userID uuid.UUID, claimedAt time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE vouchers SET status = $1, claimed_by = $2, claimed_at = $3, updated_at = $3
		 WHERE id = $4 AND status = $5`,
		model.StatusClaimed, userID, claimedAt, voucherID, model.StatusUnclaimed)
	if err != nil {
		return fmt.Errorf("mark voucher %s claimed: %w", voucherID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrAlreadyClaimed
	}
	return nil
}

// UpdateStatus performs a conditional status transition keyed on the expected
// prior status. Zero rows affected means either the voucher doesn't exist or
// a concurrent transition won; the caller distinguishes the two.
// Reactivating (new status UNCLAIMED) clears the claim fields.
func (r *VoucherRepository) UpdateStatus(ctx context.Context, voucherID uuid.UUID, fromStatus, toStatus string) (bool, error) {
	var tag pgconn.CommandTag
	var err error
	if toStatus == model.StatusUnclaimed {
		tag, err = r.pool.Exec(ctx,
			`UPDATE vouchers SET status = $1, claimed_by = NULL, claimed_at = NULL, updated_at = now()
			 WHERE id = $2 AND status = $3`,
			toStatus, voucherID, fromStatus)
	} else {
		tag, err = r.pool.Exec(ctx,
			`UPDATE vouchers SET status = $1, updated_at = now()
			 WHERE id = $2 AND status = $3`,
			toStatus, voucherID, fromStatus)
	}
	if err != nil {
		return false, fmt.Errorf("update voucher %s status: %w", voucherID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// List retrieves vouchers ordered by creation time, newest first, with an
// optional status filter.
func (r *VoucherRepository) List(ctx context.Context, status string, limit, offset int) ([]*model.Voucher, int, error) {
	where := ""
	args := []any{}
	if status != "" {
		where = " WHERE status = $1"
		args = append(args, status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM vouchers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count vouchers: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM vouchers%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		voucherColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list vouchers: %w", err)
	}
	defer rows.Close()

	vouchers, err := collectVouchers(rows)
	if err != nil {
		return nil, 0, err
	}
	return vouchers, total, nil
}

// ListByUser retrieves vouchers claimed by a user, newest claim first, with
// optional batch number prefix search and status filter.
func (r *VoucherRepository) ListByUser(ctx context.Context, userID uuid.UUID, search, status string, limit, offset int) ([]*model.Voucher, int, error) {
	where := ` WHERE claimed_by = $1`
	args := []any{userID}
	if search != "" {
		args = append(args, search+"%")
		where += fmt.Sprintf(` AND batch_no LIKE $%d`, len(args))
	}
	if status != "" {
		args = append(args, status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM vouchers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count user vouchers: %w", err)
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM vouchers%s ORDER BY claimed_at DESC LIMIT $%d OFFSET $%d`,
		voucherColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list user vouchers: %w", err)
	}
	defer rows.Close()

	vouchers, err := collectVouchers(rows)
	if err != nil {
		return nil, 0, err
	}
	return vouchers, total, nil
}

func collectVouchers(rows pgx.Rows) ([]*model.Voucher, error) {
	vouchers := []*model.Voucher{}
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan voucher: %w", err)
		}
		vouchers = append(vouchers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate voucher rows: %w", err)
	}
	return vouchers, nil
}
