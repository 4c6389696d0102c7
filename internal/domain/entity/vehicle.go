package entity

import "time"

type Vehicle struct {
	ID          string   `json:"id" firestore:"id"`
	OwnerID     string   `json:"owner_id" firestore:"ownerId"`
	Title       string   `json:"title" firestore:"title"`
	Description string   `json:"description,omitempty" firestore:"description,omitempty"`
	VehicleType string   `json:"vehicle_type" firestore:"vehicleType"` // "campervan", "motorbike", "car", "bicycle"
	Price       float64  `json:"price" firestore:"price"`
	Currency    string   `json:"currency" firestore:"currency"`
	Location    string   `json:"location,omitempty" firestore:"location,omitempty"`
	PhotoURLs   []string `json:"photo_urls,omitempty" firestore:"photoUrls,omitempty"`
	Status      string   `json:"status" firestore:"status"` // "listed", "sold", "withdrawn"

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
