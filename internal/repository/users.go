package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"medistore/m/internal/domain"
)

// Users is the sqlx-backed account and medical profile repository.
type Users struct {
	db *sqlx.DB
}

func NewUsers(db *sqlx.DB) *Users { return &Users{db: db} }

var _ UserRepository = (*Users)(nil)

func (r *Users) Create(ctx context.Context, u *domain.User) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO users (name, email, password, admin) VALUES (?, ?, ?, ?)`,
		u.Name, strings.ToLower(u.Email), u.Password, u.Admin)
	if err != nil {
		return err
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return err
	}
	// Every shopper gets an empty medical profile at registration.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO medical_profiles (user_id, date_of_birth, allergies, conditions, medications)
		 VALUES (?, '', '[]', '[]', '[]')`, u.ID); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u,
		`SELECT id, name, email, password, admin, created_at FROM users WHERE email = ?`,
		strings.ToLower(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Users) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u,
		`SELECT id, name, email, password, admin, created_at FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Users) UpdatePassword(ctx context.Context, id int64, hashed string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, hashed, id)
	return err
}

type profileRow struct {
	UserID      int64  `db:"user_id"`
	DateOfBirth string `db:"date_of_birth"`
	Allergies   string `db:"allergies"`
	Conditions  string `db:"conditions"`
	Medications string `db:"medications"`
	UpdatedAt   string `db:"updated_at"`
}

func (r *Users) GetProfile(ctx context.Context, userID int64) (*domain.MedicalProfile, error) {
	var row profileRow
	err := r.db.GetContext(ctx, &row,
		`SELECT user_id, date_of_birth, allergies, conditions, medications, updated_at
		 FROM medical_profiles WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p := domain.MedicalProfile{
		UserID:      row.UserID,
		DateOfBirth: row.DateOfBirth,
		UpdatedAt:   row.UpdatedAt,
	}
	for _, pair := range []struct {
		raw  string
		dest *[]string
	}{
		{row.Allergies, &p.Allergies},
		{row.Conditions, &p.Conditions},
		{row.Medications, &p.Medications},
	} {
		if pair.raw == "" {
			*pair.dest = []string{}
			continue
		}
		if err := json.Unmarshal([]byte(pair.raw), pair.dest); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *Users) SaveProfile(ctx context.Context, p *domain.MedicalProfile) error {
	allergies, err := json.Marshal(emptyIfNil(p.Allergies))
	if err != nil {
		return err
	}
	conditions, err := json.Marshal(emptyIfNil(p.Conditions))
	if err != nil {
		return err
	}
	medications, err := json.Marshal(emptyIfNil(p.Medications))
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE medical_profiles SET date_of_birth = ?, allergies = ?, conditions = ?, medications = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE user_id = ?`,
		p.DateOfBirth, string(allergies), string(conditions), string(medications), p.UserID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
