package models

// OCRWord is one recognised word. BBox is x0, y0, x1, y1.
type OCRWord struct {
	Word       string `json:"word"`
	Confidence int    `json:"confidence"`
	BBox       [4]int `json:"bbox"`
}

// OCRResult is the payload printed by the OCR helper.
type OCRResult struct {
	Success         bool      `json:"success"`
	OCRData         []OCRWord `json:"ocr_data"`
	WordCount       int       `json:"word_count"`
	ImageDimensions []int     `json:"image_dimensions,omitempty"`
	Error           string    `json:"error,omitempty"`
}
