package models

// CleaningOp identifies a single kind of cleaning operation.
type CleaningOp string

const (
	OpNumericCoercion  CleaningOp = "numeric_coercion"
	OpDatetimeCoercion CleaningOp = "datetime_coercion"
	OpMedianImputation CleaningOp = "median_imputation"
	OpModeImputation   CleaningOp = "mode_imputation"
	OpOutlierFlag      CleaningOp = "outlier_flag"
)

// CleaningAction records one mutation the cleaning pipeline applied to a cell.
// The full set of actions is written out as cleaning_log.csv in the bundle.
type CleaningAction struct {
	Column    string     `json:"column"`
	Row       int        `json:"row"` // -1 for column-level actions
	Original  string     `json:"original"`
	NewValue  string     `json:"newValue"`
	Operation CleaningOp `json:"operation"`
	Reason    string     `json:"reason"`
}
