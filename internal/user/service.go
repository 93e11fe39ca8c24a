package user

import (
	"context"
	"errors"
	"fmt"

	"backend-routetracker/internal/db"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

var (
	ErrNotFound  = errors.New("user not found")
	ErrDuplicate = errors.New("user already exists")
)

type Service struct {
	db       db.Querier
	validate *validator.Validate
}

func NewService(q db.Querier) *Service {
	return &Service{db: q, validate: validator.New()}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (User, error) {
	if err := s.validate.Struct(req); err != nil {
		return User{}, err
	}

	u := User{ID: req.ID, Email: req.Email, Name: req.Name}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	var email *string
	if u.Email != "" {
		email = &u.Email
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, name)
		VALUES ($1,$2,$3)
		RETURNING created_at
	`, u.ID, email, u.Name)
	if err := row.Scan(&u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (User, error) {
	var u User
	var email *string
	err := s.db.QueryRow(ctx, `
		SELECT id, email, name, created_at
		FROM users WHERE id=$1
	`, id).Scan(&u.ID, &email, &u.Name, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if email != nil {
		u.Email = *email
	}
	return u, nil
}

// UserExists lets the tracking engine resolve the user-id of a report.
func (s *Service) UserExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id=$1)`, id).Scan(&exists)
	return exists, err
}
