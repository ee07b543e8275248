package domain

type TestimonialStatus string

const (
	TestimonialPending  TestimonialStatus = "Pending"
	TestimonialApproved TestimonialStatus = "Approved"
	TestimonialRejected TestimonialStatus = "Rejected"
)

type Testimonial struct {
	ID        int64             `db:"id" json:"id"`
	UserID    int64             `db:"user_id" json:"user_id"`
	Author    string            `db:"author" json:"author"`
	Content   string            `db:"content" json:"content"`
	Status    TestimonialStatus `db:"status" json:"status"`
	CreatedAt string            `db:"created_at" json:"created_at,omitempty"`
}
