package types

// RegisterRequest is the allow-listed registration body. Unknown fields are
// rejected by the handler before binding.
type RegisterRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// RegisterFields lists the keys a registration body may carry
var RegisterFields = []string{"username", "email", "password"}

// LoginRequest is the login form body
type LoginRequest struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// CreateRecipeRequest represents the request body for creating a recipe
type CreateRecipeRequest struct {
	Name         string         `json:"name" binding:"required"`
	Description  string         `json:"description"`
	Instructions string         `json:"instructions"`
	Ingredients  IngredientList `json:"ingredients"`
	HasNuts      FlexBool       `json:"has_nuts"`
}

// UpdateRecipeRequest represents the request body for updating a recipe.
// All four fields overwrite the stored values.
type UpdateRecipeRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Instructions string   `json:"instructions"`
	HasNuts      TextBool `json:"has_nuts"`
}
