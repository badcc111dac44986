// server/internal/api/handlers/harvest_handler.go
package handlers

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"agritrace-api-server/internal/database"
	"agritrace-api-server/internal/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type HarvestHandler struct {
	DB *mongo.Database
}

type CreateHarvestRequest struct {
	CropType     string           `json:"cropType" binding:"required"`
	Quantity     models.Quantity  `json:"quantity" binding:"required"`
	QualityGrade string           `json:"qualityGrade"`
	HarvestDate  time.Time        `json:"harvestDate" binding:"required"`
	Location     string           `json:"location" binding:"required"`
	Coordinates  *models.GeoPoint `json:"coordinates"`
}

// CreateHarvest logs a new harvest batch for the calling farmer. The batch
// starts in "pending" until an admin approves it.
func (h *HarvestHandler) CreateHarvest(c *gin.Context) {
	var req CreateHarvestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newHarvest := models.Harvest{
		BatchID:      generateBatchID(),
		FarmerID:     c.GetString("user_id"),
		CropType:     req.CropType,
		Quantity:     req.Quantity,
		QualityGrade: req.QualityGrade,
		HarvestDate:  req.HarvestDate,
		Location:     req.Location,
		Coordinates:  req.Coordinates,
		Status:       models.HarvestStatusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	collection := h.DB.Collection(database.CollHarvests)
	result, err := collection.InsertOne(context.Background(), newHarvest)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create harvest"})
		return
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		newHarvest.ID = oid
	}

	c.JSON(http.StatusCreated, newHarvest)
}

// GetMyHarvests lists the calling farmer's harvests, newest first.
func (h *HarvestHandler) GetMyHarvests(c *gin.Context) {
	collection := h.DB.Collection(database.CollHarvests)
	filter := bson.M{"farmerID": c.GetString("user_id")}

	cursor, err := collection.Find(context.Background(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query harvests"})
		return
	}
	defer cursor.Close(context.Background())

	var harvests []models.Harvest
	if err := cursor.All(context.Background(), &harvests); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode harvests"})
		return
	}
	if harvests == nil {
		harvests = []models.Harvest{}
	}

	c.JSON(http.StatusOK, harvests)
}

// GetHarvestByID returns one harvest, scoped to the caller unless the caller
// is an admin.
func (h *HarvestHandler) GetHarvestByID(c *gin.Context) {
	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Harvest not found"})
		return
	}

	filter := bson.M{"_id": oid}
	if c.GetString("user_role") != "admin" {
		filter["farmerID"] = c.GetString("user_id")
	}

	var harvest models.Harvest
	err = h.DB.Collection(database.CollHarvests).FindOne(context.Background(), filter).Decode(&harvest)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "Harvest not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve harvest"})
		}
		return
	}

	c.JSON(http.StatusOK, harvest)
}

type UpdateHarvestStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending approved listed sold rejected"`
}

// UpdateHarvestStatus moves a harvest through its review states. Admin only.
func (h *HarvestHandler) UpdateHarvestStatus(c *gin.Context) {
	oid, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Harvest not found"})
		return
	}

	var req UpdateHarvestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Collection(database.CollHarvests).UpdateOne(context.Background(),
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": req.Status, "updatedAt": time.Now()}},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update harvest"})
		return
	}
	if result.MatchedCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Harvest not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "harvestStatus": req.Status})
}

// generateBatchID builds a user-friendly batch identifier.
func generateBatchID() string {
	return fmt.Sprintf("BATCH-%s-%s", time.Now().Format("20060102"), randString(4))
}

func randString(n int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return string(b)
}
