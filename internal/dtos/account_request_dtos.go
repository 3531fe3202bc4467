package dtos

type CreateAccountRequestRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	FullName string  `json:"full_name" validate:"required,min=1,max=200"`
	Position *string `json:"position,omitempty" validate:"omitempty,max=200"`
}

type RejectAccountRequestRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}
