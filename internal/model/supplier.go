package model

import (
	"time"

	"github.com/sells-group/coverage-cli/internal/geo"
)

// Dataset is one uploaded supplier file.
type Dataset struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Filename       string    `json:"filename"`
	TotalSuppliers int       `json:"total_suppliers"`
	CreatedAt      time.Time `json:"created_at"`
}

// Supplier is a named location belonging to a dataset.
type Supplier struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	DatasetID           string    `json:"dataset_id"`
	Name                string    `json:"supplier_name"`
	Location            geo.Point `json:"location"`
	OriginalCoordinates string    `json:"original_coordinates,omitempty"`
	Position            int       `json:"position"` // 0-based source row
	CreatedAt           time.Time `json:"created_at"`
}

// Office is a candidate office location.
type Office struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"office_name"`
	Location  geo.Point `json:"location"`
	CreatedAt time.Time `json:"created_at"`
}
