package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"homegrid.io/internal/listing"
)

const propertyColumns = `id, title, price, surface, city, street, address, property_type,
	bedrooms, bathrooms, description, images, status, owner_id, created_at, updated_at`

func (s *Store) CreateProperty(ctx context.Context, p listing.Property) (listing.Property, error) {
	if s.db == nil {
		return listing.Property{}, errors.New("database connection unavailable")
	}
	images, err := marshalImages(p.Images)
	if err != nil {
		return listing.Property{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into properties (title, price, surface, city, street, address, property_type,
			bedrooms, bathrooms, description, images, status, owner_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		returning `+propertyColumns+`
	`, p.Title, p.Price, p.Surface, p.City, p.Street, p.Address, p.Type,
		p.Bedrooms, p.Bathrooms, p.Description, images, p.Status, p.OwnerID)
	created, err := scanProperty(row)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return listing.Property{}, listing.ErrNotFound
		}
		return listing.Property{}, err
	}
	return created, nil
}

func (s *Store) GetProperty(ctx context.Context, id int64) (listing.Property, error) {
	if s.db == nil {
		return listing.Property{}, errors.New("database connection unavailable")
	}
	row := s.db.QueryRowContext(ctx, `
		select `+propertyColumns+`
		from properties
		where id = $1
	`, id)
	return scanProperty(row)
}

func (s *Store) UpdateProperty(ctx context.Context, id int64, upd listing.PropertyUpdate) (listing.Property, error) {
	if s.db == nil {
		return listing.Property{}, errors.New("database connection unavailable")
	}
	var (
		sets []string
		args []any
		idx  = 1
	)
	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if upd.Title != nil {
		set("title", *upd.Title)
	}
	if upd.Price != nil {
		set("price", *upd.Price)
	}
	if upd.Surface != nil {
		set("surface", *upd.Surface)
	}
	if upd.City != nil {
		set("city", *upd.City)
	}
	if upd.Street != nil {
		set("street", *upd.Street)
	}
	if upd.Address != nil {
		set("address", *upd.Address)
	}
	if upd.Type != nil {
		set("property_type", *upd.Type)
	}
	if upd.Bedrooms != nil {
		set("bedrooms", *upd.Bedrooms)
	}
	if upd.Bathrooms != nil {
		set("bathrooms", *upd.Bathrooms)
	}
	if upd.Description != nil {
		set("description", *upd.Description)
	}
	if upd.Status != nil {
		set("status", *upd.Status)
	}
	if len(sets) > 0 {
		sets = append(sets, "updated_at = now()")
		query := fmt.Sprintf(`update properties set %s where id = $%d`, strings.Join(sets, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return listing.Property{}, err
		}
		aff, err := res.RowsAffected()
		if err != nil {
			return listing.Property{}, err
		}
		if aff == 0 {
			return listing.Property{}, listing.ErrNotFound
		}
	}
	return s.GetProperty(ctx, id)
}

func (s *Store) DeleteProperty(ctx context.Context, id int64) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	res, err := s.db.ExecContext(ctx, `delete from properties where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return listing.ErrNotFound
	}
	return nil
}

func (s *Store) ListProperties(ctx context.Context, f listing.Filter) ([]listing.Property, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	var (
		wheres []string
		args   []any
		idx    = 1
	)
	if f.OwnerID != nil {
		wheres = append(wheres, fmt.Sprintf("owner_id = $%d", idx))
		args = append(args, *f.OwnerID)
		idx++
	}
	if f.Status != nil {
		wheres = append(wheres, fmt.Sprintf("status = $%d", idx))
		args = append(args, *f.Status)
		idx++
	}
	if f.City != "" {
		wheres = append(wheres, fmt.Sprintf("lower(city) = lower($%d)", idx))
		args = append(args, f.City)
		idx++
	}
	query := `select ` + propertyColumns + ` from properties`
	if len(wheres) > 0 {
		query += " where " + strings.Join(wheres, " and ")
	}
	query += " order by " + orderClause(f.Sort)
	query += fmt.Sprintf(" limit $%d offset $%d", idx, idx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []listing.Property
	for rows.Next() {
		var (
			p      listing.Property
			images []byte
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Price, &p.Surface, &p.City, &p.Street, &p.Address,
			&p.Type, &p.Bedrooms, &p.Bathrooms, &p.Description, &images, &p.Status, &p.OwnerID,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if err := unmarshalImages(images, &p); err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return props, nil
}

func (s *Store) AppendImages(ctx context.Context, id int64, images []string) (listing.Property, error) {
	if s.db == nil {
		return listing.Property{}, errors.New("database connection unavailable")
	}
	raw, err := marshalImages(images)
	if err != nil {
		return listing.Property{}, err
	}
	row := s.db.QueryRowContext(ctx, `
		update properties
		set images = images || $2::jsonb, updated_at = now()
		where id = $1
		returning `+propertyColumns+`
	`, id, raw)
	return scanProperty(row)
}

func orderClause(sort listing.Sort) string {
	switch sort {
	case listing.SortPriceAsc:
		return "price asc, id desc"
	case listing.SortPriceDesc:
		return "price desc, id desc"
	default:
		return "created_at desc, id desc"
	}
}

func scanProperty(row *sql.Row) (listing.Property, error) {
	var (
		p      listing.Property
		images []byte
	)
	err := row.Scan(&p.ID, &p.Title, &p.Price, &p.Surface, &p.City, &p.Street, &p.Address,
		&p.Type, &p.Bedrooms, &p.Bathrooms, &p.Description, &images, &p.Status, &p.OwnerID,
		&p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return listing.Property{}, listing.ErrNotFound
	}
	if err != nil {
		return listing.Property{}, err
	}
	if err := unmarshalImages(images, &p); err != nil {
		return listing.Property{}, err
	}
	return p, nil
}

func marshalImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("marshal images: %w", err)
	}
	return raw, nil
}

func unmarshalImages(raw []byte, p *listing.Property) error {
	p.Images = []string{}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, &p.Images); err != nil {
		return fmt.Errorf("decode images: %w", err)
	}
	return nil
}
