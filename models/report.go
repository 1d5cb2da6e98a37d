package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReportInput is the organizer's narrative about a finished event.
type ReportInput struct {
	PreparedBy        string   `json:"preparedBy" bson:"preparedBy"`
	EventPurpose      string   `json:"eventPurpose" bson:"eventPurpose"`
	KeyHighlights     string   `json:"keyHighlights" bson:"keyHighlights"`
	MajorOutcomes     string   `json:"majorOutcomes" bson:"majorOutcomes"`
	Budget            float64  `json:"budget" bson:"budget"`
	ActualExpenditure float64  `json:"actualExpenditure" bson:"actualExpenditure"`
	Sponsorship       string   `json:"sponsorship" bson:"sponsorship"`
	Photos            []string `json:"photos" bson:"photos"`
}

type ReportSection struct {
	Heading string   `json:"heading" bson:"heading"`
	Content []string `json:"content" bson:"content"`
}

type Report struct {
	ID          primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Event       primitive.ObjectID `json:"event" bson:"event"`
	Author      primitive.ObjectID `json:"author" bson:"author"`
	Title       string             `json:"title" bson:"title"`
	Input       ReportInput        `json:"input" bson:"input"`
	Stats       EventStats         `json:"stats" bson:"stats"`
	Sections    []ReportSection    `json:"sections" bson:"sections"`
	GeneratedBy string             `json:"generatedBy" bson:"generatedBy"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
}
