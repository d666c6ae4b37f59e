package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tenac92/LEXIS-sub001/internal/db"

	"github.com/google/uuid"
)

var ErrInvalidUserID = errors.New("resolver: invalid user id")

// DBResolver reads unit assignments from user_units.
type DBResolver struct {
	db *db.DB
}

func NewDBResolver(db *db.DB) *DBResolver {
	return &DBResolver{db: db}
}

// UnitIDs returns the units assigned to an active user, ordered by id.
// Disabled users and users without assignments yield an empty slice.
func (r *DBResolver) UnitIDs(ctx context.Context, userID string) ([]int64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUserID, userID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT uu.unit_id
		FROM user_units uu
		JOIN users u ON u.id = uu.user_id
		WHERE uu.user_id = $1
		  AND u.status = 'active'
		ORDER BY uu.unit_id
	`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
