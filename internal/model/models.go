package model

import "time"

// Profile is a user's public dating profile. ID is the owner's user id.
type Profile struct {
	ID        int       `json:"id"`
	FullName  string    `json:"full_name"`
	Age       int       `json:"age"`
	Location  string    `json:"location"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Bio       string    `json:"bio"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// HasCoordinates reports whether both latitude and longitude are set.
func (p Profile) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Like is a swipe decision of UserID about TargetID.
type Like struct {
	UserID    int       `json:"user_id"`
	TargetID  int       `json:"target_id"`
	IsLike    bool      `json:"is_like"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one chat line between two users.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int       `json:"sender_id"`
	ReceiverID int       `json:"receiver_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Between reports whether the message was exchanged by a and b, in either direction.
func (m Message) Between(a, b int) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// MatchedProfile is an entry of the match list.
// Mutual is true when the other person liked the viewer back.
type MatchedProfile struct {
	Profile
	Mutual bool `json:"mutual"`
}
