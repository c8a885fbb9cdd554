package validators

import "go.mongodb.org/mongo-driver/bson"

const (
	datePattern = `^\d{4}-\d{2}-\d{2}$`
	timePattern = `^([01]\d|2[0-3]):[0-5]\d$`
)

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var TeacherValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"name",
			"email",
			"subject",
			"available_slots",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"email": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 254,
			},

			"subject": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"phone_number": bson.M{
				"bsonType": "string",
				"pattern":  `^\+[1-9]\d{7,14}$`,
			},

			"available_slots": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"id", "day", "start_time", "end_time"},
					"properties": bson.M{
						"id":         bson.M{"bsonType": "string"},
						"day":        bson.M{"bsonType": "string", "enum": weekdays},
						"start_time": bson.M{"bsonType": "string", "pattern": timePattern},
						"end_time":   bson.M{"bsonType": "string", "pattern": timePattern},
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
