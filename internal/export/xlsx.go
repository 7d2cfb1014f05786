// Package export writes reconciled data to files for operators: match
// spreadsheets and mapping documents.
package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/odds-cli/internal/model"
)

// MatchColumns is the header row of a match spreadsheet.
var MatchColumns = []string{
	"match_id", "match_name", "match_time", "team_a", "team_b", "odds_a", "odds_b", "updated_at",
}

// WriteMatchesXLSX saves records as a single sheet named after the
// competition. Times use model.TimeLayout in UTC.
func WriteMatchesXLSX(path, competition string, records []model.MatchRecord) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName(competition))
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range MatchColumns {
		header.AddCell().SetString(col)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.MatchID)
		row.AddCell().SetString(r.MatchName)
		row.AddCell().SetString(r.MatchTime.UTC().Format(model.TimeLayout))
		row.AddCell().SetString(r.TeamA)
		row.AddCell().SetString(r.TeamB)
		row.AddCell().SetFloat(r.OddsA)
		row.AddCell().SetFloat(r.OddsB)
		row.AddCell().SetString(r.UpdatedAt.UTC().Format(model.TimeLayout))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// sheetName keeps a competition name within Excel's sheet name rules.
func sheetName(competition string) string {
	name := model.SafeName(competition)
	if name == "" {
		name = "matches"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
