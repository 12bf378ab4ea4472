package api

import (
	"context"
	"net/http"

	"act-academy/internal/domain"
)

// Report files a moderation report. It never touches local state.
func (c *Client) Report(ctx context.Context, report domain.Report) error {
	if report.ReportableType == "" {
		report.ReportableType = domain.ReportableComment
	}
	if err := report.Validate(); err != nil {
		return err
	}
	return c.doJSON(ctx, http.MethodPost, "/api/reports", report, nil)
}

// ReportMessage reports a direct message from the messaging UI.
func (c *Client) ReportMessage(ctx context.Context, messageID string, reason domain.ReportReason) error {
	return c.Report(ctx, domain.Report{
		Reason:         reason,
		ReportableID:   messageID,
		ReportableType: domain.ReportableMessage,
	})
}
