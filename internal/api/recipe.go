package api

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pageza/recipebox/internal/apperrors"
	"github.com/pageza/recipebox/internal/middleware"
	"github.com/pageza/recipebox/internal/models"
	"github.com/pageza/recipebox/internal/monitoring"
	"github.com/pageza/recipebox/internal/service"
	"github.com/pageza/recipebox/internal/session"
	"github.com/pageza/recipebox/internal/types"
	"github.com/pageza/recipebox/internal/upload"
)

const (
	msgRetrieveFailed = "Failed to retrieve recipes"
	msgGetFailed      = "Failed to retrieve recipe"
	msgCreateFailed   = "Failed to create post"
	msgUpdateFailed   = "Failed to update recipe"
	msgDeleteFailed   = "Failed to delete recipe"
	msgInvalidRecipe  = "Invalid recipe data"
	msgSessionFailed  = "Failed to save session"
	msgRecipeUpdated  = "Recipe updated successfully"
	msgRecipeDeleted  = "Recipe deleted successfully"
)

const maxMultipartMemory = 8 << 20

var errNoSessionUser = errors.New("logged in session has no user id")

// ImageAcceptor validates and stores an uploaded recipe image
type ImageAcceptor interface {
	Accept(ctx context.Context, form *multipart.Form) (*upload.Image, error)
	Discard(ctx context.Context, img *upload.Image) error
}

// RouteOptions carries the optional rate limiters for the recipe routes
type RouteOptions struct {
	CreateLimit gin.HandlerFunc
	ModifyLimit gin.HandlerFunc
}

type RecipeHandler struct {
	recipeService service.IRecipeService
	sessions      SessionManager
	images        ImageAcceptor
	metrics       *monitoring.Metrics
	log           *zap.Logger
	strict        bool
}

func NewRecipeHandler(recipeService service.IRecipeService, sessions SessionManager, images ImageAcceptor, metrics *monitoring.Metrics, log *zap.Logger, strict bool) *RecipeHandler {
	return &RecipeHandler{
		recipeService: recipeService,
		sessions:      sessions,
		images:        images,
		metrics:       metrics,
		log:           log,
		strict:        strict,
	}
}

// RegisterRoutes mounts the recipe routes under /recipes. In strict mode the
// list is guarded as well.
func (h *RecipeHandler) RegisterRoutes(router gin.IRouter, opts RouteOptions) {
	guard := middleware.WithAuth()
	recipes := router.Group("/recipes")
	{
		list := []gin.HandlerFunc{h.ListRecipes}
		if h.strict {
			list = append([]gin.HandlerFunc{guard}, list...)
		}
		recipes.GET("", list...)
		recipes.GET("/:id", guard, h.GetRecipe)
		recipes.POST("/create-recipe", withOptional(guard, opts.CreateLimit, h.CreateRecipe)...)
		recipes.PUT("/:id", withOptional(guard, opts.ModifyLimit, h.UpdateRecipe)...)
		recipes.DELETE("/:id", guard, h.DeleteRecipe)
	}
}

func withOptional(guard, limit, handler gin.HandlerFunc) []gin.HandlerFunc {
	if limit == nil {
		return []gin.HandlerFunc{guard, handler}
	}
	return []gin.HandlerFunc{guard, limit, handler}
}

// owner returns the user every lookup is scoped to, or nil when recipes are
// visible to any logged in session.
func (h *RecipeHandler) owner(s session.Session) *uuid.UUID {
	if h.strict {
		if s.UserID == nil {
			nobody := uuid.Nil
			return &nobody
		}
		return s.UserID
	}
	return nil
}

// ListRecipes returns the recipes owned by the session's user. A session
// without a user gets an empty list.
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	s := session.FromContext(c)
	if s.UserID == nil {
		c.JSON(http.StatusOK, gin.H{"recipes": []*models.Recipe{}})
		return
	}

	recipes, err := h.recipeService.ListRecipes(c.Request.Context(), *s.UserID)
	if err != nil {
		respondError(c, h.log, err, msgRetrieveFailed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// GetRecipe renders a recipe page and counts the visit on the session
func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	s := session.FromContext(c)
	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), id, h.owner(s))
	if err != nil {
		respondError(c, h.log, err, msgGetFailed)
		return
	}

	s = session.RecordVisit(s)
	if err := h.sessions.Save(c, s); err != nil {
		respondError(c, h.log, apperrors.Session("save session", err), msgSessionFailed)
		return
	}

	h.metrics.RecipeViewed()
	c.HTML(http.StatusOK, "recipe.html", gin.H{
		"recipe":     recipe,
		"logged_in":  s.LoggedIn,
		"countVisit": s.CountVisit,
	})
}

// CreateRecipe stores a recipe owned by the session's user. Multipart
// bodies may carry one image in the recipeImage field.
func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	s := session.FromContext(c)
	if s.UserID == nil {
		respondError(c, h.log, apperrors.Store("create recipe", errNoSessionUser), msgCreateFailed)
		return
	}

	req, form, err := bindCreate(c)
	if err != nil {
		respondError(c, h.log, err, msgInvalidRecipe)
		return
	}

	recipe := &models.Recipe{
		UserID:       *s.UserID,
		Name:         req.Name,
		Description:  req.Description,
		Instructions: req.Instructions,
		HasNuts:      bool(req.HasNuts),
	}
	for _, name := range req.Ingredients {
		recipe.Ingredients = append(recipe.Ingredients, models.Ingredient{Name: name})
	}

	image, err := h.images.Accept(c.Request.Context(), form)
	if err != nil {
		h.metrics.Upload("rejected")
		respondError(c, h.log, err, msgCreateFailed)
		return
	}
	if image != nil {
		h.metrics.Upload("stored")
		recipe.ImagePath = image.Path
	}

	created, err := h.recipeService.CreateRecipe(c.Request.Context(), recipe)
	if err != nil {
		if image != nil {
			h.metrics.Upload("discarded")
			if derr := h.images.Discard(context.WithoutCancel(c.Request.Context()), image); derr != nil {
				h.log.Error("failed to remove image of unsaved recipe",
					zap.String("request_id", requestID(c)),
					zap.String("path", image.Path),
					zap.Error(derr),
				)
			}
		}
		respondError(c, h.log, err, msgCreateFailed)
		return
	}

	h.metrics.RecipeCreated()
	c.JSON(http.StatusOK, created)
}

func bindCreate(c *gin.Context) (types.CreateRecipeRequest, *multipart.Form, error) {
	var req types.CreateRecipeRequest
	var form *multipart.Form

	switch c.ContentType() {
	case binding.MIMEMultipartPOSTForm:
		if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
			return req, nil, apperrors.Validation(msgInvalidRecipe, err)
		}
		form = c.Request.MultipartForm
		req = createFromForm(c)
	case binding.MIMEPOSTForm:
		if err := c.Request.ParseForm(); err != nil {
			return req, nil, apperrors.Validation(msgInvalidRecipe, err)
		}
		req = createFromForm(c)
	default:
		if err := c.ShouldBindJSON(&req); err != nil {
			return req, nil, apperrors.Validation(msgInvalidRecipe, err)
		}
		return req, nil, nil
	}

	if err := binding.Validator.ValidateStruct(&req); err != nil {
		return req, nil, apperrors.Validation(msgInvalidRecipe, err)
	}
	return req, form, nil
}

func createFromForm(c *gin.Context) types.CreateRecipeRequest {
	req := types.CreateRecipeRequest{
		Name:         c.PostForm("name"),
		Description:  c.PostForm("description"),
		Instructions: c.PostForm("instructions"),
		HasNuts:      types.FlexBool(types.ParseHasNuts(c.PostForm("has_nuts"))),
	}
	for _, v := range c.PostFormArray("ingredients") {
		req.Ingredients = append(req.Ingredients, types.SplitIngredients(v)...)
	}
	return req
}

// UpdateRecipe overwrites name, description, instructions and has_nuts.
// has_nuts is true only for the exact text "true".
func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	var req types.UpdateRecipeRequest
	switch c.ContentType() {
	case binding.MIMEMultipartPOSTForm, binding.MIMEPOSTForm:
		req = types.UpdateRecipeRequest{
			Name:         c.PostForm("name"),
			Description:  c.PostForm("description"),
			Instructions: c.PostForm("instructions"),
			HasNuts:      types.TextBool(types.ParseHasNuts(c.PostForm("has_nuts"))),
		}
	default:
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, h.log, apperrors.Validation(msgInvalidRecipe, err), msgUpdateFailed)
			return
		}
	}

	fields := service.RecipeFields{
		Name:         req.Name,
		Description:  req.Description,
		Instructions: req.Instructions,
		HasNuts:      bool(req.HasNuts),
	}
	err := h.recipeService.UpdateRecipe(c.Request.Context(), id, h.owner(session.FromContext(c)), fields)
	if err != nil {
		respondError(c, h.log, err, msgUpdateFailed)
		return
	}

	h.metrics.RecipeUpdated()
	c.JSON(http.StatusOK, gin.H{"message": msgRecipeUpdated})
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	err := h.recipeService.DeleteRecipe(c.Request.Context(), id, h.owner(session.FromContext(c)))
	if err != nil {
		respondError(c, h.log, err, msgDeleteFailed)
		return
	}

	h.metrics.RecipeDeleted()
	c.JSON(http.StatusOK, gin.H{"message": msgRecipeDeleted})
}

// recipeID parses the :id parameter. An id that cannot name a recipe is
// answered like a missing recipe.
func recipeID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, apperrors.NewPayload(apperrors.KindNotFound, service.MsgRecipeNotFound))
		return uuid.Nil, false
	}
	return id, true
}
