package validators

import "go.mongodb.org/mongo-driver/bson"

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"user_id", "type", "message", "read", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"booking_id": bson.M{
				"bsonType": "string",
			},
			"event_id": bson.M{
				"bsonType": "string",
			},
			"type": bson.M{
				"bsonType": "string",
				"enum": []string{
					"Booking Confirmation",
					"Booking Rescheduled",
					"Booking Cancellation",
					"Booking Removed",
					"Reminder",
				},
			},
			"message": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"read": bson.M{
				"bsonType": "bool",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

// ReminderValidator keys reminders by booking id, so _id is a string here.
var ReminderValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "student_id", "teacher_id", "starts_at", "fire_at", "status"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"student_id": bson.M{"bsonType": "string"},
			"teacher_id": bson.M{"bsonType": "string"},
			"starts_at":  bson.M{"bsonType": "date"},
			"fire_at":    bson.M{"bsonType": "date"},
			"status": bson.M{
				"bsonType": "string",
				"enum":     []string{"pending", "sent"},
			},
		},
	},
}
