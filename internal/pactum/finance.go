package pactum

import (
	"context"
	"net/http"
)

func (c *API) FinancialSummary(ctx context.Context) (FinancialSummary, error) {
	var out FinancialSummary
	err := c.getJSON(ctx, "financial.summary", "/financial/summary", nil, &out)
	return out, err
}

func (c *API) FinancialReport(ctx context.Context) (FinancialReport, error) {
	var out FinancialReport
	err := c.getJSON(ctx, "financial.report", "/financial/report", nil, &out)
	return out, err
}

func (c *API) SaveFinancialReport(ctx context.Context, in FinancialReport) error {
	if in.Payments == nil {
		in.Payments = []FinancialLine{}
	}
	if in.Reserves == nil {
		in.Reserves = []FinancialLine{}
	}
	return c.sendJSON(ctx, "financial.report.save", http.MethodPost, "/financial/report", in, nil)
}
