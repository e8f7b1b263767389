package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"comanda/internal/domain"
	"comanda/internal/errors"
)

type MySQLFoodRepository struct {
	db *sql.DB
}

func NewMySQLFoodRepository(db *sql.DB) *MySQLFoodRepository {
	return &MySQLFoodRepository{db: db}
}

const foodColumns = `id, name, price, COALESCE(description, ''), createdAt, updatedAt`

func (r *MySQLFoodRepository) FindAll(ctx context.Context) ([]domain.Food, error) {
	query := `SELECT ` + foodColumns + ` FROM Foods ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying foods: %w", err)
	}
	defer rows.Close()

	return scanFoods(rows)
}

func (r *MySQLFoodRepository) FindByID(ctx context.Context, id int64) (*domain.Food, error) {
	query := `SELECT ` + foodColumns + ` FROM Foods WHERE id = ?`

	var f domain.Food
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&f.ID, &f.Name, &f.Price, &f.Description, &f.CreatedAt, &f.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("food with id %d not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("querying food by id: %w", err)
	}

	return &f, nil
}

func (r *MySQLFoodRepository) FindByIDs(ctx context.Context, ids []int64) ([]domain.Food, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(`SELECT `+foodColumns+` FROM Foods WHERE id IN (%s) ORDER BY id`,
		strings.Join(placeholders, ", "),
	)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying foods by ids: %w", err)
	}
	defer rows.Close()

	return scanFoods(rows)
}

func (r *MySQLFoodRepository) Insert(ctx context.Context, food domain.Food) (int64, error) {
	query := `INSERT INTO Foods (name, price, description) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, food.Name, food.Price, food.Description)
	if err != nil {
		return 0, fmt.Errorf("inserting food: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	return id, nil
}

func (r *MySQLFoodRepository) Update(ctx context.Context, food domain.Food) error {
	query := `UPDATE Foods SET name = ?, price = ?, description = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, food.Name, food.Price, food.Description, food.ID); err != nil {
		return fmt.Errorf("updating food: %w", err)
	}

	// MySQL reports zero affected rows for an unchanged row, so existence is
	// checked separately.
	_, err := r.FindByID(ctx, food.ID)
	return err
}

func (r *MySQLFoodRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM Foods WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting food: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("food with id %d not found", id))
	}

	return nil
}

func scanFoods(rows *sql.Rows) ([]domain.Food, error) {
	var foods []domain.Food
	for rows.Next() {
		var f domain.Food
		if err := rows.Scan(&f.ID, &f.Name, &f.Price, &f.Description, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning food row: %w", err)
		}
		foods = append(foods, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating food rows: %w", err)
	}

	return foods, nil
}
