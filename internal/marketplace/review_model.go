package marketplace

import "time"

// Review is a customer's rating of a shop for one delivered order.
type Review struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name,omitempty"`
	SellerID     string    `json:"seller_id"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProductReview rates one order item. It cannot be edited.
type ProductReview struct {
	ID           string    `json:"id"`
	OrderID      string    `json:"order_id"`
	OrderItemID  string    `json:"order_item_id"`
	ProductID    *string   `json:"product_id"`
	CustomerID   string    `json:"customer_id"`
	CustomerName string    `json:"customer_name,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

// RatingSummary aggregates a shop's or product's reviews.
type RatingSummary struct {
	TotalReviews  int     `json:"total_reviews"`
	AverageRating float64 `json:"average_rating"`
	RatingCounts  struct {
		FiveStar  int `json:"five_star"`
		FourStar  int `json:"four_star"`
		ThreeStar int `json:"three_star"`
		TwoStar   int `json:"two_star"`
		OneStar   int `json:"one_star"`
	} `json:"rating_counts"`
}

func (s *RatingSummary) add(rating, count int) {
	switch rating {
	case 5:
		s.RatingCounts.FiveStar = count
	case 4:
		s.RatingCounts.FourStar = count
	case 3:
		s.RatingCounts.ThreeStar = count
	case 2:
		s.RatingCounts.TwoStar = count
	case 1:
		s.RatingCounts.OneStar = count
	}
}

// ReviewRequest is the body for creating or editing a review.
type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}
