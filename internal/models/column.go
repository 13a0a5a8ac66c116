package models

// ColumnType classifies a dataset column after type inference.
type ColumnType string

const (
	ColumnNumeric     ColumnType = "numeric"
	ColumnDatetime    ColumnType = "datetime"
	ColumnBoolean     ColumnType = "boolean"
	ColumnCategorical ColumnType = "categorical"
)

// NumericProfile holds descriptive statistics for a numeric column.
type NumericProfile struct {
	Column     string  `json:"column"`
	Count      int     `json:"count"`
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Min        float64 `json:"min"`
	P25        float64 `json:"p25"`
	Median     float64 `json:"median"`
	P75        float64 `json:"p75"`
	P95        float64 `json:"p95"`
	Max        float64 `json:"max"`
	Missing    int     `json:"missing"`
	MissingPct float64 `json:"missingPct"`
	Skew       float64 `json:"skew"`
	Kurtosis   float64 `json:"kurtosis"`
	Outliers   int     `json:"outliers"`
}

// CategoricalProfile holds summary statistics for a categorical column.
type CategoricalProfile struct {
	Column     string  `json:"column"`
	Unique     int     `json:"unique"`
	Top        string  `json:"top"`
	Freq       int     `json:"freq"`
	Missing    int     `json:"missing"`
	MissingPct float64 `json:"missingPct"`
}

// DatasetSummary describes the dataset as a whole.
type DatasetSummary struct {
	Rows            int                   `json:"rows"`
	Columns         int                   `json:"columns"`
	TotalMissing    int                   `json:"totalMissing"`
	TotalMissingPct float64               `json:"totalMissingPct"`
	MemoryBytes     int64                 `json:"memoryBytes"`
	Types           map[string]ColumnType `json:"types"`
}
