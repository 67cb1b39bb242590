package model

// Course is reference data identified by its course code.
type Course struct {
	Code       string            `json:"code"`
	Titles     map[string]string `json:"titles"`
	Department string            `json:"department"`
}

// Instructor is reference data identified by name.
type Instructor struct {
	Name       string            `json:"name"`
	Names      map[string]string `json:"names"`
	Department string            `json:"department"`
}
