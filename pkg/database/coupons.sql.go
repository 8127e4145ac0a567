package database

import (
	"context"
	"time"
)

const couponColumns = `id, title, code, bookmaker, affiliate_url, description, total_odds, is_active, expires_at, created_at`

func scanCoupon(row interface{ Scan(...interface{}) error }) (Coupon, error) {
	var i Coupon
	err := row.Scan(
		&i.ID,
		&i.Title,
		&i.Code,
		&i.Bookmaker,
		&i.AffiliateURL,
		&i.Description,
		&i.TotalOdds,
		&i.IsActive,
		&i.ExpiresAt,
		&i.CreatedAt,
	)
	return i, err
}

const listCoupons = `-- name: ListCoupons :many
SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC
`

func (q *Queries) ListCoupons(ctx context.Context) ([]Coupon, error) {
	return q.queryCoupons(ctx, listCoupons)
}

const listActiveCoupons = `-- name: ListActiveCoupons :many
SELECT ` + couponColumns + ` FROM coupons
WHERE is_active = TRUE AND (expires_at IS NULL OR expires_at > $1)
ORDER BY created_at DESC
`

// ListActiveCoupons returns active coupons that have not expired at now.
func (q *Queries) ListActiveCoupons(ctx context.Context, now time.Time) ([]Coupon, error) {
	return q.queryCoupons(ctx, listActiveCoupons, now)
}

func (q *Queries) queryCoupons(ctx context.Context, sql string, args ...interface{}) ([]Coupon, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Coupon{}
	for rows.Next() {
		i, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type CouponParams struct {
	Title        string     `json:"title"`
	Code         string     `json:"code"`
	Bookmaker    string     `json:"bookmaker"`
	AffiliateURL *string    `json:"affiliate_url"`
	Description  *string    `json:"description"`
	TotalOdds    *float64   `json:"total_odds"`
	IsActive     bool       `json:"is_active"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

const createCoupon = `-- name: CreateCoupon :one
INSERT INTO coupons (title, code, bookmaker, affiliate_url, description, total_odds, is_active, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + couponColumns

func (q *Queries) CreateCoupon(ctx context.Context, arg CouponParams) (Coupon, error) {
	return scanCoupon(q.db.QueryRow(ctx, createCoupon,
		arg.Title, arg.Code, arg.Bookmaker, arg.AffiliateURL, arg.Description, arg.TotalOdds, arg.IsActive, arg.ExpiresAt,
	))
}

const updateCoupon = `-- name: UpdateCoupon :one
UPDATE coupons SET
    title = $2, code = $3, bookmaker = $4, affiliate_url = $5, description = $6,
    total_odds = $7, is_active = $8, expires_at = $9
WHERE id = $1
RETURNING ` + couponColumns

func (q *Queries) UpdateCoupon(ctx context.Context, id int32, arg CouponParams) (Coupon, error) {
	i, err := scanCoupon(q.db.QueryRow(ctx, updateCoupon,
		id, arg.Title, arg.Code, arg.Bookmaker, arg.AffiliateURL, arg.Description, arg.TotalOdds, arg.IsActive, arg.ExpiresAt,
	))
	return i, notFound(err)
}

const deleteCoupon = `-- name: DeleteCoupon :exec
DELETE FROM coupons WHERE id = $1
`

func (q *Queries) DeleteCoupon(ctx context.Context, id int32) error {
	tag, err := q.db.Exec(ctx, deleteCoupon, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
