package kafka

import "time"

const (
	TopicAccountCreated = `users.account-created`
	TopicPasswordReset  = `users.password-reset-requested`
	TopicOrderPaid      = `orders.order-paid`

	ConsumerGroupNotifications = `notification-workers`
)

// AccountCreatedEvent carries the activation OTP to the notification worker.
// The OTP never appears in an HTTP response.
type AccountCreatedEvent struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	OTP       string    `json:"otp"`
	CreatedAt time.Time `json:"created_at"`
}

type PasswordResetEvent struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	OTP       string    `json:"otp"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderPaidEvent struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Total      string    `json:"total"`
	PaymentRef string    `json:"payment_ref"`
	CreatedAt  time.Time `json:"created_at"`
}
