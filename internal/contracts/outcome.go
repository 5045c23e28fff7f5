package contracts

// ScreenStatus tags the per-symbol result of a day's screen so callers
// can distinguish "excluded by policy" from "data error" without either
// aborting the day loop.
type ScreenStatus string

const (
	ScreenSelected  ScreenStatus = "selected"
	ScreenFiltered  ScreenStatus = "filtered"
	ScreenDataError ScreenStatus = "data_error"
)

// ScreenOutcome is the tagged per-symbol result of one screening pass.
type ScreenOutcome struct {
	Symbol    string       `json:"symbol"`
	Status    ScreenStatus `json:"status"`
	Criterion string       `json:"criterion,omitempty"` // filter that rejected, when filtered
	Err       error        `json:"-"`                   // cause, when data_error
}
