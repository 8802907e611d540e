package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
)

type CheckInParams struct {
	LicensePlate string `json:"license_plate" jsonschema:"vehicle license plate, up to 20 characters"`
	VehicleType  string `json:"vehicle_type" jsonschema:"car or motorcycle"`
}

type TicketParams struct {
	QRCode string `json:"qr_code" jsonschema:"QR token printed on the ticket"`
}

type CheckOutParams struct {
	QRCode        string `json:"qr_code" jsonschema:"QR token printed on the ticket"`
	PaymentMethod string `json:"payment_method" jsonschema:"cash, qris, e-wallet, debit or credit"`
	Notes         string `json:"notes,omitempty" jsonschema:"optional note, up to 500 characters"`
}

type CancelParams struct {
	ID     string `json:"id" jsonschema:"session ID"`
	Reason string `json:"reason,omitempty" jsonschema:"why the session is cancelled, up to 500 characters"`
}

type SessionParams struct {
	ID string `json:"id" jsonschema:"session ID"`
}

type HistoryParams struct {
	Status    string `json:"status,omitempty" jsonschema:"active, completed or cancelled"`
	StartDate string `json:"start_date,omitempty" jsonschema:"first entry date, YYYY-MM-DD"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"last entry date, YYYY-MM-DD"`
	Page      int    `json:"page,omitempty" jsonschema:"page number, from 1"`
	PerPage   int    `json:"per_page,omitempty" jsonschema:"page size, default 20"`
}

type UpdateRateParams struct {
	VehicleType   string `json:"vehicle_type" jsonschema:"car or motorcycle"`
	FirstHourRate int64  `json:"first_hour_rate" jsonschema:"fee for the first hour"`
	NextHourRate  int64  `json:"next_hour_rate" jsonschema:"fee for each further started hour"`
	DailyMaxRate  *int64 `json:"daily_max_rate,omitempty" jsonschema:"cap on the fee of a visit; omit for none"`
}

type DailyReportParams struct {
	StartDate string `json:"start_date,omitempty" jsonschema:"first date, YYYY-MM-DD"`
	EndDate   string `json:"end_date,omitempty" jsonschema:"last date, YYYY-MM-DD"`
	Page      int    `json:"page,omitempty" jsonschema:"page number, from 1"`
	PerPage   int    `json:"per_page,omitempty" jsonschema:"page size, default 30"`
}

type MonthlyReportParams struct {
	Year  int `json:"year" jsonschema:"calendar year"`
	Month int `json:"month,omitempty" jsonschema:"1-12; omit for every month of the year"`
}

type noParams struct{}

func registerTools(server *sdkmcp.Server, svc Services) {
	// Parking
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "check_in",
		Description: "Register a vehicle entry and issue a ticket number and QR token",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in CheckInParams) (*sdkmcp.CallToolResult, any, error) {
		sess, err := svc.Parking.CheckIn(ctx, parking.CheckInRequest{
			LicensePlate: in.LicensePlate,
			VehicleType:  rate.VehicleType(in.VehicleType),
			OperatorID:   operatorID(ctx),
		})
		return jsonResult(sess, err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "scan_ticket",
		Description: "Show the live duration and estimated fee of an active ticket without closing it",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in TicketParams) (*sdkmcp.CallToolResult, any, error) {
		preview, err := svc.Parking.Preview(ctx, in.QRCode)
		return jsonResult(preview, err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "check_out",
		Description: "Close an active ticket, charge the fee and record the payment method",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in CheckOutParams) (*sdkmcp.CallToolResult, any, error) {
		sess, err := svc.Parking.CheckOut(ctx, parking.CheckOutRequest{
			QRToken:       in.QRCode,
			PaymentMethod: parking.PaymentMethod(in.PaymentMethod),
			Notes:         in.Notes,
			OperatorID:    operatorID(ctx),
		})
		return jsonResult(sess, err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "cancel_session",
		Description: "Cancel an active session without charging (admin only)",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in CancelParams) (*sdkmcp.CallToolResult, any, error) {
		if err := requireAdmin(ctx); err != nil {
			return nil, nil, err
		}
		sess, err := svc.Parking.Cancel(ctx, parking.CancelRequest{
			ID:         in.ID,
			OperatorID: operatorID(ctx),
			Reason:     in.Reason,
		})
		return jsonResult(sess, err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_session",
		Description: "Get one parking session by ID",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in SessionParams) (*sdkmcp.CallToolResult, any, error) {
		sess, err := svc.Parking.Get(ctx, in.ID)
		return jsonResult(sess, err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_active",
		Description: "List vehicles currently parked, newest first, with elapsed minutes",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ noParams) (*sdkmcp.CallToolResult, any, error) {
		active, err := svc.Parking.Active(ctx)
		if active == nil {
			active = []parking.ActiveSession{}
		}
		return jsonResult(active, err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "parking_history",
		Description: "Page through sessions filtered by status and entry date",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in HistoryParams) (*sdkmcp.CallToolResult, any, error) {
		filter := parking.HistoryFilter{Page: in.Page, PerPage: in.PerPage}
		if in.Status != "" {
			status := parking.Status(in.Status)
			if !status.Valid() {
				return nil, nil, toolError(&parking.ValidationError{Field: "status", Reason: "must be active, completed or cancelled"})
			}
			filter.Status = &status
		}
		var err error
		if filter.StartDate, err = parseDate(in.StartDate, "start_date"); err != nil {
			return nil, nil, toolError(err)
		}
		if filter.EndDate, err = parseDate(in.EndDate, "end_date"); err != nil {
			return nil, nil, toolError(err)
		}
		page, err := svc.Parking.History(ctx, filter)
		return jsonResult(page, err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "dashboard_stats",
		Description: "Active vehicles, today's and this month's revenue, recent activity and free slots",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ noParams) (*sdkmcp.CallToolResult, any, error) {
		stats, err := svc.Dashboard.Stats(ctx)
		return jsonResult(stats, err)
	})

	// Rates
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_rates",
		Description: "List the rate rule of every vehicle type",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ noParams) (*sdkmcp.CallToolResult, any, error) {
		rules, err := svc.Rates.List(ctx)
		if rules == nil {
			rules = []rate.Rule{}
		}
		return jsonResult(rules, err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "update_rate",
		Description: "Replace the rate rule of a vehicle type (admin only). Applies to later checkouts",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in UpdateRateParams) (*sdkmcp.CallToolResult, any, error) {
		if err := requireAdmin(ctx); err != nil {
			return nil, nil, err
		}
		rule, err := svc.Rates.Update(ctx, rate.UpdateRequest{
			VehicleType:   rate.VehicleType(in.VehicleType),
			FirstHourRate: in.FirstHourRate,
			NextHourRate:  in.NextHourRate,
			DailyMaxRate:  in.DailyMaxRate,
		})
		return jsonResult(rule, err)
	})

	// Reports
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "daily_reports",
		Description: "Page through daily revenue aggregates, newest first (admin only)",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in DailyReportParams) (*sdkmcp.CallToolResult, any, error) {
		if err := requireAdmin(ctx); err != nil {
			return nil, nil, err
		}
		opts := report.DailyOptions{Page: in.Page, PerPage: in.PerPage}
		var err error
		if opts.StartDate, err = parseDate(in.StartDate, "start_date"); err != nil {
			return nil, nil, toolError(err)
		}
		if opts.EndDate, err = parseDate(in.EndDate, "end_date"); err != nil {
			return nil, nil, toolError(err)
		}
		page, err := svc.Reports.Daily(ctx, opts)
		return jsonResult(page, err)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "monthly_report",
		Description: "Totals of one month, or of each month of a year with data (admin only)",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in MonthlyReportParams) (*sdkmcp.CallToolResult, any, error) {
		if err := requireAdmin(ctx); err != nil {
			return nil, nil, err
		}
		if in.Month != 0 {
			totals, err := svc.Reports.Month(ctx, in.Year, time.Month(in.Month))
			return jsonResult(map[string]any{"year": in.Year, "month": in.Month, "totals": totals}, err)
		}
		months, err := svc.Reports.Year(ctx, in.Year)
		if months == nil {
			months = []report.MonthTotals{}
		}
		return jsonResult(map[string]any{"year": in.Year, "monthly_reports": months}, err)
	})
}

// jsonResult renders v as the text content of a tool result.
func jsonResult(v any, err error) (*sdkmcp.CallToolResult, any, error) {
	if err != nil {
		return nil, nil, toolError(err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func parseDate(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(report.DateLayout, raw)
	if err != nil {
		return nil, &parking.ValidationError{Field: field, Reason: "must be a YYYY-MM-DD date"}
	}
	return &t, nil
}
