package models

// User is the minimal account projection checkout needs; account CRUD lives
// in another service.
type User struct {
	ID    int64  `json:"userId"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Address is a shipping address owned by a user.
type Address struct {
	ID     int64  `json:"addressId"`
	UserID int64  `json:"userId"`
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
}

// Guide is a digital guide attached to a bundle's ritual; guides for settled
// bundle lines ride along on the order-confirmation email.
type Guide struct {
	ID   int64  `json:"guideId"`
	Name string `json:"name"`
}
