// Package notebook reads Jupyter .ipynb documents down to their code cells.
package notebook

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/notebook-systems/nbdag/nbgraph"
)

// cellSource tolerates both ipynb source encodings: a single joined string
// or a list of line fragments.
type cellSource string

func (src *cellSource) UnmarshalJSON(data []byte) error {
	var joined string
	if err := json.Unmarshal(data, &joined); err == nil {
		*src = cellSource(joined)
		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*src = cellSource(strings.Join(lines, ""))
	return nil
}

type rawCell struct {
	CellType string     `json:"cell_type"`
	Source   cellSource `json:"source"`
}

type rawNotebook struct {
	Cells []rawCell `json:"cells"`
}

// Cells extracts the code cell sources of an ipynb document in notebook
// order.  Markdown and raw cells are skipped, as are blank code cells, so
// the result is ready for graph inference.  A document that does not parse
// reports ErrBadNotebook.
func Cells(data []byte) ([]string, error) {
	var nb rawNotebook
	if err := json.Unmarshal(data, &nb); err != nil {
		return nil, errors.WithMessage(nbgraph.ErrBadNotebook, err.Error())
	}

	cells := make([]string, 0, len(nb.Cells))
	for _, cell := range nb.Cells {
		if cell.CellType != "code" {
			continue
		}
		if strings.TrimSpace(string(cell.Source)) == "" {
			continue
		}
		cells = append(cells, string(cell.Source))
	}
	return cells, nil
}
