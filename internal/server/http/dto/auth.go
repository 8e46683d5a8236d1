package dto

// AuthRequest describes the admin login payload.
type AuthRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}
