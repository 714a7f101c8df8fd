package service

import "mongods/internal/core"

const (
	QueryTextLabel   = "Query Text"
	QueryTextTooltip = "The Mongo query to run"
)

// QueryEditor binds the query text input to a query owned by the host.
type QueryEditor struct {
	query    core.Query
	onChange func(core.Query)
}

func NewQueryEditor(query core.Query, onChange func(core.Query)) *QueryEditor {
	return &QueryEditor{
		query:    query,
		onChange: onChange,
	}
}

// OnQueryTextChange hands the host a copy of its query with the new text.
// Defaults shown in the form are not written back.
func (e *QueryEditor) OnQueryTextChange(text string) {
	if e.onChange != nil {
		e.onChange(e.query.WithQueryText(text))
	}
}

type QueryView struct {
	Label   string `json:"label"`
	Tooltip string `json:"tooltip"`
	Value   string `json:"value"`
}

func (e *QueryEditor) View() QueryView {
	query := e.query.WithDefaults()
	return QueryView{
		Label:   QueryTextLabel,
		Tooltip: QueryTextTooltip,
		Value:   query.Text(),
	}
}
