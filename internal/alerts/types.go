package alerts

import "time"

// Task type constants
const (
	TaskOrderStatusChanged = "order:status_changed"
	TaskSellerApproved     = "seller:approved"
)

// Queue names
const (
	QueueNotifications = "notifications"
	QueueEmails        = "emails"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// OrderStatusChangedPayload is sent after an order is placed or moves to a
// new status.
type OrderStatusChangedPayload struct {
	OrderID      string    `json:"order_id"`
	OrderNumber  string    `json:"order_number"`
	CustomerID   string    `json:"customer_id"`
	SellerID     string    `json:"seller_id"`
	SellerUserID string    `json:"seller_user_id"`
	Status       string    `json:"status"`
	ChangedBy    string    `json:"changed_by"`
	SentAt       time.Time `json:"sent_at"`
}

// Recipient is the user on the other side of the change.
func (p OrderStatusChangedPayload) Recipient() string {
	if p.ChangedBy == p.CustomerID {
		return p.SellerUserID
	}
	return p.CustomerID
}

// SellerApprovedPayload is sent when an admin approves a shop.
type SellerApprovedPayload struct {
	SellerID string        `json:"seller_id"`
	UserID   string        `json:"user_id"`
	ShopName string        `json:"shop_name"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Notification is an in-app message for one user.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"-"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Reference *string    `json:"reference"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`
}
