package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"student_id",
			"teacher_id",
			"day",
			"date",
			"start_time",
			"end_time",
			"starts_at",
			"ends_at",
			"status",
			"booked_by",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"student_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"teacher_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"day": bson.M{
				"bsonType": "string",
				"enum":     weekdays,
			},

			"date": bson.M{
				"bsonType": "string",
				"pattern":  datePattern,
			},

			"start_time": bson.M{
				"bsonType": "string",
				"pattern":  timePattern,
			},

			"end_time": bson.M{
				"bsonType": "string",
				"pattern":  timePattern,
			},

			"starts_at": bson.M{
				"bsonType": "date",
			},

			"ends_at": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"completed",
					"cancelled",
				},
			},

			"booked_by": bson.M{
				"bsonType": "string",
				"enum":     []string{"student", "teacher", "admin"},
			},

			"slot_key": bson.M{
				"bsonType": "string",
			},

			"rescheduled_time": bson.M{
				"bsonType": "date",
			},

			"cancellation_time": bson.M{
				"bsonType": "date",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
