package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/shopstock/stock-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation (23503)
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "transfer_items_quantity"):
		return errors.Validation(map[string]string{
			"quantity": "must be a positive integer",
		})
	case strings.Contains(constraint, "items_quantity"):
		return errors.Validation(map[string]string{
			"quantity": "warehouse quantity cannot be negative",
		})
	case strings.Contains(constraint, "retail_price"):
		return errors.Validation(map[string]string{
			"retail_price": "must be a valid price (2 decimal places max)",
		})
	case strings.Contains(constraint, "records_per_page"):
		return errors.Validation(map[string]string{
			"records_per_page": "must be at least 1",
		})
	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "items_pkey"):
		return "an item with this SKU already exists"
	case strings.Contains(constraint, "shop_items_user_sku"):
		return "this shop already holds the item"
	case strings.Contains(constraint, "transfer_items_user_sku"):
		return "a transfer for this item is already pending"
	case strings.Contains(constraint, "username"):
		return "a user with this username already exists"
	default:
		return "a record with these values already exists"
	}
}
