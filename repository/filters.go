package repository

import (
	"regexp"

	"eventtts/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SearchFields are the event fields a free-text query is matched against.
var SearchFields = []string{"title", "description", "location", "landmark"}

// buildEventFilter translates q into a Mongo filter. Search text is matched
// literally, case-insensitively.
func buildEventFilter(q models.EventQuery) bson.M {
	var conds []bson.M

	if q.MainOnly {
		// matches both a missing and a null parentEvent
		conds = append(conds, bson.M{"parentEvent": nil})
	}
	if q.CategoryID != nil {
		conds = append(conds, bson.M{"category": *q.CategoryID})
	}
	if q.OrganizerID != nil {
		conds = append(conds, bson.M{"organizer": *q.OrganizerID})
	}
	if q.ExcludeID != nil {
		conds = append(conds, bson.M{"_id": bson.M{"$ne": *q.ExcludeID}})
	}
	if q.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(q.Search), Options: "i"}
		or := make(bson.A, 0, len(SearchFields))
		for _, f := range SearchFields {
			or = append(or, bson.M{f: rx})
		}
		conds = append(conds, bson.M{"$or": or})
	}
	if q.Related != nil {
		or := bson.A{bson.M{"category": q.Related.CategoryID}}
		if len(q.Related.TagIDs) > 0 {
			or = append(or, bson.M{"tags": bson.M{"$in": q.Related.TagIDs}})
		}
		conds = append(conds, bson.M{"$or": or})
	}

	switch len(conds) {
	case 0:
		return bson.M{}
	case 1:
		return conds[0]
	}
	and := make(bson.A, len(conds))
	for i, c := range conds {
		and[i] = c
	}
	return bson.M{"$and": and}
}

// buildEventSet turns the non-nil fields of u into a $set document.
func buildEventSet(u models.EventUpdate) bson.M {
	set := bson.M{}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Photo != nil {
		set["photo"] = *u.Photo
	}
	if u.Slug != nil {
		set["slug"] = *u.Slug
	}
	if u.IsOnline != nil {
		set["isOnline"] = *u.IsOnline
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}
	if u.Landmark != nil {
		set["landmark"] = *u.Landmark
	}
	if u.URL != nil {
		set["url"] = *u.URL
	}
	if u.StartDate != nil {
		set["startDate"] = *u.StartDate
	}
	if u.EndDate != nil {
		set["endDate"] = *u.EndDate
	}
	if u.StartTime != nil {
		set["startTime"] = *u.StartTime
	}
	if u.EndTime != nil {
		set["endTime"] = *u.EndTime
	}
	if u.Duration != nil {
		set["duration"] = *u.Duration
	}
	if u.IsFree != nil {
		set["isFree"] = *u.IsFree
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Tags != nil {
		set["tags"] = *u.Tags
	}
	if u.Status != nil {
		set["status"] = *u.Status
	}
	return set
}
