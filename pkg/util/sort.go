package util

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// GetCreatedAtSortBson sorts on created_at, descending unless sort contains "asc".
func GetCreatedAtSortBson(sort string) bson.D {
	value := -1
	if strings.Contains(sort, "asc") {
		value = 1
	}
	return bson.D{{Key: "created_at", Value: value}}
}
