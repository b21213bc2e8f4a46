package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Only a paid state is modelled; proof of payment is an uploaded image.
const PaymentStatusPaid = "Paid"

const DefaultPaymentMethod = "UPI"

type Payment struct {
	bun.BaseModel `bun:"table:payments,alias:p"`

	ID             string    `bun:"id,pk" json:"id"`
	StudentID      string    `bun:"student_id,notnull" json:"studentId"`
	RegistrationID string    `bun:"registration_id,notnull,unique" json:"registrationId"`
	Image          string    `bun:"image,notnull" json:"image"`
	PaymentMethod  string    `bun:"payment_method,notnull" json:"paymentMethod"`
	PaymentID      string    `bun:"payment_id,notnull" json:"paymentId"`
	PaymentStatus  string    `bun:"payment_status,notnull" json:"paymentStatus"`
	Amount         int64     `bun:"amount,notnull" json:"amount"`
	CreatedAt      time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
}
