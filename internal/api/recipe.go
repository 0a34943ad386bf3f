package api

import (
	"context"  // Context for storage cleanup
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Cache TTL

	"recipe_api/internal/cache"   // Response cache
	"recipe_api/internal/domain"  // Importing domain models
	"recipe_api/internal/storage" // Image storage

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sahilm/fuzzy"    // Fuzzy title search
	"github.com/sirupsen/logrus" // Logging library
	"gorm.io/gorm"               // GORM ORM library
	"gorm.io/gorm/clause"        // Association clauses
)

// errForeignLabel is returned when a referenced label is missing or owned by someone else
var errForeignLabel = errors.New("referenced object does not exist")

// RecipeRequest is the body for creating (POST) or replacing (PUT) a recipe
type RecipeRequest struct {
	Title       string        `json:"title" binding:"required,max=255"`
	TimeMinutes *int          `json:"time_minutes" binding:"required,min=0"`
	Price       *domain.Price `json:"price" binding:"required"`
	Link        string        `json:"link" binding:"max=255"`
	Ingredients []uint        `json:"ingredients"`
	Tags        []uint        `json:"tags"`
}

// RecipePatchRequest is the body for partial updates; nil fields are left unchanged
type RecipePatchRequest struct {
	Title       *string       `json:"title" binding:"omitempty,max=255"`
	TimeMinutes *int          `json:"time_minutes" binding:"omitempty,min=0"`
	Price       *domain.Price `json:"price"`
	Link        *string       `json:"link" binding:"omitempty,max=255"`
	Ingredients *[]uint       `json:"ingredients"`
	Tags        *[]uint       `json:"tags"`
}

// RecipeResponse is the list representation, relations as ids
type RecipeResponse struct {
	ID          uint         `json:"id"`
	Title       string       `json:"title"`
	Ingredients []uint       `json:"ingredients"`
	Tags        []uint       `json:"tags"`
	TimeMinutes int          `json:"time_minutes"`
	Price       domain.Price `json:"price"`
	Link        string       `json:"link"`
}

// RecipeDetailResponse nests the related labels and exposes the image URL
type RecipeDetailResponse struct {
	ID          uint           `json:"id"`
	Title       string         `json:"title"`
	Ingredients []domain.Label `json:"ingredients"`
	Tags        []domain.Label `json:"tags"`
	TimeMinutes int            `json:"time_minutes"`
	Price       domain.Price   `json:"price"`
	Link        string         `json:"link"`
	Image       *string        `json:"image"`
}

func toRecipeResponse(r *domain.Recipe) RecipeResponse {
	return RecipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		Ingredients: r.IngredientIDs(),
		Tags:        r.TagIDs(),
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
	}
}

func toRecipeDetailResponse(r *domain.Recipe, images storage.ImageStore) RecipeDetailResponse {
	resp := RecipeDetailResponse{
		ID:          r.ID,
		Title:       r.Title,
		Ingredients: make([]domain.Label, len(r.Ingredients)),
		Tags:        make([]domain.Label, len(r.Tags)),
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
	}
	for i, ing := range r.Ingredients {
		resp.Ingredients[i] = ing.Label
	}
	for i, tag := range r.Tags {
		resp.Tags[i] = tag.Label
	}
	if r.Image != "" {
		url := images.URL(r.Image)
		resp.Image = &url
	}
	return resp
}

// ownedLabels loads the user's records with the given ids, failing if any is missing
func ownedLabels[T domain.Ingredient | domain.Tag](db *gorm.DB, userID uint, ids []uint) ([]T, error) {
	ids = uniqueIDs(ids)
	out := []T{}
	if len(ids) == 0 {
		return out, nil
	}
	if err := db.Where("user_id = ? AND id IN ?", userID, ids).Order("id").Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) != len(ids) {
		return nil, errForeignLabel
	}
	return out, nil
}

// replaceAssociation links exactly items to the recipe without touching the items themselves
func replaceAssociation[T any](tx *gorm.DB, recipe *domain.Recipe, name string, items []T) error {
	assoc := tx.Model(recipe).Omit(name + ".*").Association(name)
	if len(items) == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(items)
}

// preloadLabels loads both relations ordered by id
func preloadLabels(db *gorm.DB) *gorm.DB {
	byID := func(db *gorm.DB) *gorm.DB { return db.Order("id") }
	return db.Preload("Ingredients", byID).Preload("Tags", byID)
}

// findRecipe loads one of the user's recipes with its labels
func findRecipe(db *gorm.DB, userID, id uint) (*domain.Recipe, error) {
	var recipe domain.Recipe
	if err := preloadLabels(db).Where("id = ? AND user_id = ?", id, userID).First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

// ListRecipesHandler lists the caller's recipes, newest first.
// tags and ingredients take comma separated ids; search fuzzy-matches titles.
func ListRecipesHandler(db *gorm.DB, store cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		tagIDs, err := parseIDList(c.Query("tags"))
		if err != nil {
			respondFieldError(c, "tags", "Enter a comma separated list of ids.")
			return
		}
		ingredientIDs, err := parseIDList(c.Query("ingredients"))
		if err != nil {
			respondFieldError(c, "ingredients", "Enter a comma separated list of ids.")
			return
		}
		search := strings.TrimSpace(c.Query("search"))

		ctx := c.Request.Context()
		cacheKey := "recipes:tags=" + c.Query("tags") +
			":ingredients=" + c.Query("ingredients") + ":search=" + search
		resp, hit, err := cache.Fetch(ctx, store, cache.UserPrefix(user.ID), cacheKey, ttl, func(ctx context.Context) ([]RecipeResponse, error) {
			query := preloadLabels(db.WithContext(ctx)).Where("recipes.user_id = ?", user.ID)
			if len(tagIDs) > 0 {
				query = query.Where("recipes.id IN (?)",
					db.Table("recipe_tags").Select("recipe_id").Where("tag_id IN ?", tagIDs))
			}
			if len(ingredientIDs) > 0 {
				query = query.Where("recipes.id IN (?)",
					db.Table("recipe_ingredients").Select("recipe_id").Where("ingredient_id IN ?", ingredientIDs))
			}
			var recipes []domain.Recipe
			if err := query.Order("recipes.id desc").Find(&recipes).Error; err != nil {
				return nil, err
			}
			if search != "" {
				recipes = rankByTitle(recipes, search)
			}
			resp := make([]RecipeResponse, len(recipes))
			for i := range recipes {
				resp[i] = toRecipeResponse(&recipes[i])
			}
			return resp, nil
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,     // User ID
				"error":   err.Error(), // Error message
			}).Error("Failed to list recipes")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipes"})
			return
		}
		cacheStatus(c, hit)
		c.JSON(http.StatusOK, resp)
	}
}

// rankByTitle keeps recipes whose title fuzzy-matches pattern, best match first
func rankByTitle(recipes []domain.Recipe, pattern string) []domain.Recipe {
	titles := make([]string, len(recipes))
	for i, r := range recipes {
		titles[i] = r.Title
	}
	matches := fuzzy.Find(pattern, titles)
	out := make([]domain.Recipe, 0, len(matches))
	for _, m := range matches {
		out = append(out, recipes[m.Index])
	}
	return out
}

// CreateRecipeHandler creates a recipe owned by the caller
func CreateRecipeHandler(db *gorm.DB, store cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		var req RecipeRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
		title := strings.TrimSpace(req.Title)
		if title == "" {
			respondFieldError(c, "title", "This field may not be blank.")
			return
		}
		tx := db.WithContext(c.Request.Context())
		ingredients, err := ownedLabels[domain.Ingredient](tx, user.ID, req.Ingredients)
		if err != nil {
			respondLabelError(c, "ingredients", err)
			return
		}
		tags, err := ownedLabels[domain.Tag](tx, user.ID, req.Tags)
		if err != nil {
			respondLabelError(c, "tags", err)
			return
		}
		recipe := domain.Recipe{
			UserID:      user.ID,
			Title:       title,
			TimeMinutes: *req.TimeMinutes,
			Price:       *req.Price,
			Link:        strings.TrimSpace(req.Link),
		}
		err = tx.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
				return err
			}
			if err := replaceAssociation(tx, &recipe, "Ingredients", ingredients); err != nil {
				return err
			}
			return replaceAssociation(tx, &recipe, "Tags", tags)
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id": user.ID,     // User ID
				"error":   err.Error(), // Error message
			}).Error("Failed to create recipe")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create recipe"})
			return
		}
		recipe.Ingredients = ingredients
		recipe.Tags = tags
		logrus.WithFields(logrus.Fields{
			"user_id":   user.ID,   // User ID
			"recipe_id": recipe.ID, // Recipe ID
		}).Info("Recipe created")
		invalidateUser(c.Request.Context(), store, user.ID)
		c.JSON(http.StatusCreated, toRecipeResponse(&recipe))
	}
}

// GetRecipeHandler returns the detail representation of one of the caller's recipes
func GetRecipeHandler(db *gorm.DB, images storage.ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		recipe, err := findRecipe(db.WithContext(c.Request.Context()), user.ID, id)
		if err != nil {
			respondLookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, toRecipeDetailResponse(recipe, images))
	}
}

// UpdateRecipeHandler applies a partial (PATCH) or full (PUT) update.
// Relations given in the body replace the current ones; on PUT omitted relations are cleared.
func UpdateRecipeHandler(db *gorm.DB, store cache.Cache, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		tx := db.WithContext(c.Request.Context())
		recipe, err := findRecipe(tx, user.ID, id)
		if err != nil {
			respondLookupError(c, err)
			return
		}
		patch, ok := bindRecipePatch(c, partial)
		if !ok {
			return
		}
		updates := map[string]any{}
		if patch.Title != nil {
			title := strings.TrimSpace(*patch.Title)
			if title == "" {
				respondFieldError(c, "title", "This field may not be blank.")
				return
			}
			updates["title"] = title
		}
		if patch.TimeMinutes != nil {
			updates["time_minutes"] = *patch.TimeMinutes
		}
		if patch.Price != nil {
			updates["price_cents"] = int64(*patch.Price)
		}
		if patch.Link != nil {
			updates["link"] = strings.TrimSpace(*patch.Link)
		}
		var ingredients []domain.Ingredient
		if patch.Ingredients != nil {
			if ingredients, err = ownedLabels[domain.Ingredient](tx, user.ID, *patch.Ingredients); err != nil {
				respondLabelError(c, "ingredients", err)
				return
			}
		}
		var tags []domain.Tag
		if patch.Tags != nil {
			if tags, err = ownedLabels[domain.Tag](tx, user.ID, *patch.Tags); err != nil {
				respondLabelError(c, "tags", err)
				return
			}
		}
		err = tx.Transaction(func(tx *gorm.DB) error {
			if len(updates) > 0 {
				if err := tx.Model(recipe).Omit(clause.Associations).Updates(updates).Error; err != nil {
					return err
				}
			}
			if patch.Ingredients != nil {
				if err := replaceAssociation(tx, recipe, "Ingredients", ingredients); err != nil {
					return err
				}
			}
			if patch.Tags != nil {
				return replaceAssociation(tx, recipe, "Tags", tags)
			}
			return nil
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id":   user.ID,     // User ID
				"recipe_id": recipe.ID,   // Recipe ID
				"error":     err.Error(), // Error message
			}).Error("Failed to update recipe")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recipe"})
			return
		}
		invalidateUser(c.Request.Context(), store, user.ID)
		updated, err := findRecipe(tx, user.ID, recipe.ID)
		if err != nil {
			respondLookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, toRecipeResponse(updated))
	}
}

// bindRecipePatch reads either body shape into a patch; PUT bodies set every field
func bindRecipePatch(c *gin.Context, partial bool) (RecipePatchRequest, bool) {
	if partial {
		var patch RecipePatchRequest
		if err := c.ShouldBindJSON(&patch); err != nil {
			respondBindError(c, err)
			return patch, false
		}
		return patch, true
	}
	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return RecipePatchRequest{}, false
	}
	ingredients, tags := req.Ingredients, req.Tags
	return RecipePatchRequest{
		Title:       &req.Title,
		TimeMinutes: req.TimeMinutes,
		Price:       req.Price,
		Link:        &req.Link,
		Ingredients: &ingredients,
		Tags:        &tags,
	}, true
}

// DeleteRecipeHandler deletes one of the caller's recipes and its stored image
func DeleteRecipeHandler(db *gorm.DB, store cache.Cache, images storage.ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		tx := db.WithContext(c.Request.Context())
		recipe, err := findRecipe(tx, user.ID, id)
		if err != nil {
			respondLookupError(c, err)
			return
		}
		err = tx.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(recipe).Association("Ingredients").Clear(); err != nil {
				return err
			}
			if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
				return err
			}
			return tx.Delete(&domain.Recipe{}, recipe.ID).Error
		})
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"user_id":   user.ID,     // User ID
				"recipe_id": recipe.ID,   // Recipe ID
				"error":     err.Error(), // Error message
			}).Error("Failed to delete recipe")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete recipe"})
			return
		}
		removeImage(c.Request.Context(), images, recipe.Image)
		invalidateUser(c.Request.Context(), store, user.ID)
		c.Status(http.StatusNoContent)
	}
}

// removeImage deletes a stored image, logging instead of failing the request
func removeImage(ctx context.Context, images storage.ImageStore, key string) {
	if key == "" {
		return
	}
	if err := images.Delete(ctx, key); err != nil {
		logrus.WithFields(logrus.Fields{
			"key":   key,         // Storage key
			"error": err.Error(), // Error message
		}).Warn("Failed to delete recipe image")
	}
}

func respondLabelError(c *gin.Context, field string, err error) {
	if errors.Is(err, errForeignLabel) {
		respondFieldError(c, field, "Invalid pk - object does not exist.")
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch " + field})
}
