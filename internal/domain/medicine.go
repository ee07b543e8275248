package domain

type Medicine struct {
	ID           int64   `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	Brand        string  `db:"brand" json:"brand"`
	Dosage       string  `db:"dosage" json:"dosage"`
	Category     string  `db:"category" json:"category"`
	Price        float64 `db:"price" json:"price"`
	Stock        int64   `db:"stock" json:"stock"`
	Prescription bool    `db:"prescription" json:"prescription"`
	Sold         int64   `db:"sold" json:"sold"`
	CreatedAt    string  `db:"created_at" json:"created_at,omitempty"`
	UpdatedAt    string  `db:"updated_at" json:"updated_at,omitempty"`
}
