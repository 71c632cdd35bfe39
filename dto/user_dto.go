package dto

// UpdateUserDTO carries partial updates; absent fields stay unchanged.
type UpdateUserDTO struct {
	Username *string `json:"username" binding:"omitempty,min=3,max=50"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

type ChangeRoleDTO struct {
	Role string `json:"role" binding:"required"`
}
