package repositories

import "context"

// PropertyCodeSequence names the counter behind PROP-### base codes.
const PropertyCodeSequence = "property_code"

// CodeSequenceRepository hands out monotonically increasing numbers.
type CodeSequenceRepository interface {
	// Next atomically returns max(last_value, floor) + 1 and stores it.
	Next(ctx context.Context, name string, floor int) (int, error)
}

type codeSequenceRepo struct {
	db DB
}

func NewCodeSequenceRepository(db DB) CodeSequenceRepository {
	return &codeSequenceRepo{db: db}
}

func (r *codeSequenceRepo) Next(ctx context.Context, name string, floor int) (int, error) {
	var next int
	err := r.db.QueryRow(ctx, `
		INSERT INTO code_sequences (name, last_value)
		VALUES ($1, $2::int + 1)
		ON CONFLICT (name) DO UPDATE
		SET last_value = GREATEST(code_sequences.last_value, $2::int) + 1
		RETURNING last_value
	`, name, floor).Scan(&next)
	return next, err
}
