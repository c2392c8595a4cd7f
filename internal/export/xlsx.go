// Package export writes pricing results to XLSX workbooks for distribution
// to compensation teams.
package export

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/compass-hr/pricing-engine/internal/store"
)

// Lister provides the latest results for export.
type Lister interface {
	ListLatestResults(ctx context.Context, limit int) ([]store.LatestResult, error)
}

var resultHeader = []string{
	"Request Hash", "Job Title", "Location", "Requester", "Times Requested",
	"Version", "P10", "P25", "P50", "P75", "P90",
	"Target Salary", "Recommended Min", "Recommended Max",
	"Confidence Score", "Confidence Level", "Sources", "Calculated At", "Expires At",
}

var contributionHeader = []string{
	"Request Hash", "Job Title", "Source", "Survey", "Weight",
	"Sample Size", "Quality Score", "Recency Days", "Jobs Matched",
}

// WriteResults writes the latest result per request, plus a per-source
// contribution breakdown sheet, to path. A limit of 0 exports everything.
func WriteResults(ctx context.Context, lister Lister, path string, limit int) (int, error) {
	results, err := lister.ListLatestResults(ctx, limit)
	if err != nil {
		return 0, eris.Wrap(err, "export: list results")
	}

	f := xlsx.NewFile()

	resultSheet, err := f.AddSheet("Results")
	if err != nil {
		return 0, eris.Wrap(err, "export: add results sheet")
	}
	contribSheet, err := f.AddSheet("Source Contributions")
	if err != nil {
		return 0, eris.Wrap(err, "export: add contributions sheet")
	}

	writeRow(resultSheet, resultHeader...)
	writeRow(contribSheet, contributionHeader...)

	for _, lr := range results {
		req, res := lr.Request, lr.Result

		row := resultSheet.AddRow()
		row.AddCell().SetString(req.Hash)
		row.AddCell().SetString(req.JobTitle)
		row.AddCell().SetString(req.Location)
		row.AddCell().SetString(req.RequesterIdentity)
		row.AddCell().SetInt(req.RequestCount)
		row.AddCell().SetInt(res.Version)
		addMoney(row, res.Percentiles.P10)
		addMoney(row, res.Percentiles.P25)
		addMoney(row, res.Percentiles.P50)
		addMoney(row, res.Percentiles.P75)
		addMoney(row, res.Percentiles.P90)
		addMoney(row, res.TargetSalary)
		addMoney(row, res.RecommendedMin)
		addMoney(row, res.RecommendedMax)
		row.AddCell().SetFloatWithFormat(res.ConfidenceScore, "0.0")
		row.AddCell().SetString(string(res.ConfidenceLevel))
		row.AddCell().SetInt(len(res.Contributions))
		row.AddCell().SetString(res.CalculatedAt.UTC().Format("2006-01-02 15:04"))
		row.AddCell().SetString(res.ExpiresAt.UTC().Format("2006-01-02 15:04"))

		for _, c := range res.Contributions {
			crow := contribSheet.AddRow()
			crow.AddCell().SetString(req.Hash)
			crow.AddCell().SetString(req.JobTitle)
			crow.AddCell().SetString(c.SourceName)
			crow.AddCell().SetString(c.SurveyLabel)
			crow.AddCell().SetFloatWithFormat(c.Weight, "0.000")
			crow.AddCell().SetInt(c.SampleSize)
			crow.AddCell().SetFloatWithFormat(c.QualityScore, "0.00")
			crow.AddCell().SetInt(c.RecencyDays)
			crow.AddCell().SetInt(c.JobsMatched)
		}
	}

	if err := f.Save(path); err != nil {
		return 0, eris.Wrap(err, "export: save workbook")
	}

	zap.L().Info("results exported",
		zap.String("path", path),
		zap.Int("results", len(results)))

	return len(results), nil
}

func writeRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}

func addMoney(row *xlsx.Row, v float64) {
	row.AddCell().SetFloatWithFormat(v, "#,##0")
}
