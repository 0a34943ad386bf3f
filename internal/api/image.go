package api

import (
	"errors"   // Error matching
	"io"       // Rewinding uploads
	"net/http" // HTTP status codes

	"recipe_api/internal/cache"   // Response cache
	"recipe_api/internal/storage" // Image storage

	"github.com/gabriel-vasile/mimetype" // Content sniffing
	"github.com/gin-gonic/gin"           // Gin web framework
	"github.com/sirupsen/logrus"         // Logging library
	"gorm.io/gorm"                       // GORM ORM library
)

// MaxImageSize bounds recipe image uploads
const MaxImageSize = 10 << 20

// rasterImageTypes are the accepted upload formats; vector images such as SVG are rejected
var rasterImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// RecipeImageResponse is returned after a successful upload
type RecipeImageResponse struct {
	ID    uint   `json:"id"`
	Image string `json:"image"`
}

// UploadRecipeImageHandler stores the multipart "image" file for one of the caller's recipes,
// replacing any previous image.
func UploadRecipeImageHandler(db *gorm.DB, store cache.Cache, images storage.ImageStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := requireUser(c)
		if !ok {
			return
		}
		id, ok := parseID(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		recipe, err := findRecipe(db.WithContext(ctx), user.ID, id)
		if err != nil {
			respondLookupError(c, err)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxImageSize)
		file, header, err := c.Request.FormFile("image")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{
					"error":  "Upload too large",
					"fields": map[string]string{"image": "Ensure the file is at most 10 MB."},
				})
				return
			}
			respondFieldError(c, "image", "No file was submitted.")
			return
		}
		defer file.Close()

		mtype, err := mimetype.DetectReader(file)
		if err != nil || !rasterImageTypes[mtype.String()] {
			respondFieldError(c, "image", "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
			return
		}
		key := storage.RecipeImageKey(mtype.Extension())
		if err := images.Save(ctx, key, file, header.Size, mtype.String()); err != nil {
			logrus.WithFields(logrus.Fields{
				"recipe_id": recipe.ID,   // Recipe ID
				"key":       key,         // Storage key
				"error":     err.Error(), // Error message
			}).Error("Failed to store recipe image")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store image"})
			return
		}
		previous := recipe.Image
		if err := db.WithContext(ctx).Model(recipe).Update("image", key).Error; err != nil {
			removeImage(ctx, images, key) // Do not leak the new object
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update recipe"})
			return
		}
		removeImage(ctx, images, previous)
		invalidateUser(ctx, store, user.ID)
		logrus.WithFields(logrus.Fields{
			"user_id":   user.ID,   // User ID
			"recipe_id": recipe.ID, // Recipe ID
			"key":       key,       // Storage key
		}).Info("Recipe image uploaded")
		c.JSON(http.StatusOK, RecipeImageResponse{ID: recipe.ID, Image: images.URL(key)})
	}
}
