package models

// LabelTable is the detection label of a whole table region.
const LabelTable = "table"

// Detection is one box returned by a detection or structure-recognition
// model. Box is xmin, ymin, xmax, ymax in page pixels.
type Detection struct {
	Label string     `json:"label"`
	Score float64    `json:"score"`
	Box   [4]float64 `json:"box"`
}
