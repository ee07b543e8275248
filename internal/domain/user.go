package domain

type User struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
	Password  string `db:"password" json:"password,omitempty"`
	Admin     bool   `db:"admin" json:"admin"`
	CreatedAt string `db:"created_at" json:"created_at,omitempty"`
}

// MedicalProfile is the per-user medical record, independent of orders.
type MedicalProfile struct {
	UserID      int64    `db:"user_id" json:"user_id"`
	DateOfBirth string   `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Allergies   []string `db:"-" json:"allergies"`
	Conditions  []string `db:"-" json:"conditions"`
	Medications []string `db:"-" json:"medications"`
	UpdatedAt   string   `db:"updated_at" json:"updated_at,omitempty"`
}
