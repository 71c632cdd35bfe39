package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Follow is a directed edge: follower observes following's activity.
// The (follower, following) pair is unique at the collection level.
type Follow struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	Follower  bson.ObjectID `bson:"follower" json:"follower"`
	Following bson.ObjectID `bson:"following" json:"following"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
}
