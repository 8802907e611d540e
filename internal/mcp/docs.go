package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `parkline runs the gate of a single parking lot: vehicles check in, get a ticket, and pay on the way out.

Core concepts:
- Session: one vehicle visit. Status moves active -> completed (checked out) or active -> cancelled (admin). Both are final.
- Ticket number: PRK + entry date (YYYYMMDD) + 3 digit daily sequence, e.g. PRK20241206001.
- QR token: the 32 character code printed on the ticket; it identifies the active session at exit.
- Rate rule: per vehicle type, a first hour fee, a fee per further started hour, and an optional cap.
- Daily report: per calendar date totals of completed sessions (vehicles by type and revenue).

Workflow:
1) Entry: call check_in with license_plate and vehicle_type.
2) Exit: call scan_ticket(qr_code) to show the fee, then check_out(qr_code, payment_method).
3) Overview: dashboard_stats, list_active, parking_history.
4) Admin: list_rates / update_rate, daily_reports / monthly_report, cancel_session.

Docs:
- parkline://docs/fees (how fees are computed)
- parkline://docs/errors (error codes and what to do)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "parkline://docs/fees",
		Name:        "docs_fees",
		Title:       "Fee calculation",
		Description: "How the duration of a visit turns into a fee.",
		Content: `# Fee calculation

Duration is the whole number of minutes between entry and exit, rounded down.

Every started hour is billed: hours = ceil(minutes / 60), and a visit under one minute still counts as one hour.

- 1 hour: the first hour rate.
- More hours: first hour rate + (hours - 1) x next hour rate, capped at the daily maximum when one is set.

The daily maximum caps the whole visit, not each calendar day.

Example (car, 5000 / 3000, cap 50000):

| Minutes | Hours | Fee |
|---|---|---|
| 45 | 1 | 5000 |
| 61 | 2 | 8000 |
| 180 | 3 | 11000 |
| 1500 | 25 | 50000 |

Rates are read at checkout. Changing a rate never reprices completed sessions.
`,
	},
	{
		URI:         "parkline://docs/errors",
		Name:        "docs_errors",
		Title:       "Error codes",
		Description: "Tool error codes and recovery steps.",
		Content: `# Error codes

- VALIDATION_ERROR: an argument is missing or malformed; details.field names it.
- SESSION_NOT_FOUND: no active session for that QR token or ID. It may already be checked out.
- RATE_NOT_FOUND / RATE_NOT_CONFIGURED: the vehicle type has no rate rule. An admin must call update_rate.
- INVALID_TRANSITION: the session is already completed or cancelled.
- SEQUENCE_EXHAUSTED: 999 tickets were issued today. Tickets resume at midnight.
- GENERATION_ERROR: no unique ticket could be allocated. Retry.
- AGGREGATION_FAILED: the checkout was rolled back and the ticket is still active. Retry.
- FORBIDDEN: the tool is admin only.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		doc := doc

		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
