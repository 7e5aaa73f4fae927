package dto

type ResetDatabaseRequest struct {
	Confirm string `json:"confirm" validate:"required"`
}
