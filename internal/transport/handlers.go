package transport

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
)

type checkInBody struct {
	LicensePlate string `json:"license_plate"`
	VehicleType  string `json:"vehicle_type"`
}

type checkOutBody struct {
	QRCode        string `json:"qr_code"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes"`
}

type cancelBody struct {
	Reason string `json:"reason"`
}

type rateBody struct {
	FirstHourRate *int64 `json:"first_hour_rate"`
	NextHourRate  *int64 `json:"next_hour_rate"`
	DailyMaxRate  *int64 `json:"daily_max_rate"`
}

type rateResponse struct {
	Message string     `json:"message,omitempty"`
	Rate    *rate.Rule `json:"rate"`
}

type monthlyResponse struct {
	Year           int                  `json:"year"`
	MonthlyReports []report.MonthTotals `json:"monthly_reports"`
}

type monthResponse struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	report.Totals
}

type rangeResponse struct {
	StartDate string                  `json:"start_date"`
	EndDate   string                  `json:"end_date"`
	Reports   []report.DailyAggregate `json:"reports"`
	Totals    report.Totals           `json:"totals"`
}

func (s *Server) operatorID(r *http.Request) string {
	if op, ok := OperatorFromContext(r.Context()); ok {
		return op.ID
	}
	return ""
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var body checkInBody
	if !decodeJSON(w, r, &body) {
		return
	}

	sess, err := s.services.Parking.CheckIn(r.Context(), parking.CheckInRequest{
		LicensePlate: body.LicensePlate,
		VehicleType:  rate.VehicleType(body.VehicleType),
		OperatorID:   s.operatorID(r),
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, transactionResponse{Message: "Check-in successful", Transaction: sess})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	preview, err := s.services.Parking.Preview(r.Context(), chi.URLParam(r, "qrToken"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	var body checkOutBody
	if !decodeJSON(w, r, &body) {
		return
	}

	sess, err := s.services.Parking.CheckOut(r.Context(), parking.CheckOutRequest{
		QRToken:       body.QRCode,
		PaymentMethod: parking.PaymentMethod(body.PaymentMethod),
		Notes:         body.Notes,
		OperatorID:    s.operatorID(r),
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionResponse{Message: "Check-out successful", Transaction: sess})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var body cancelBody
	if r.ContentLength > 0 && !decodeJSON(w, r, &body) {
		return
	}

	sess, err := s.services.Parking.Cancel(r.Context(), parking.CancelRequest{
		ID:         chi.URLParam(r, "id"),
		OperatorID: s.operatorID(r),
		Reason:     body.Reason,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionResponse{Message: "Session cancelled", Transaction: sess})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.services.Parking.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionResponse{Transaction: sess})
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	active, err := s.services.Parking.Active(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if active == nil {
		active = []parking.ActiveSession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": active, "count": len(active)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter parking.HistoryFilter

	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status := parking.Status(raw)
		if !status.Valid() {
			writeError(w, s.logger, &fieldError{Field: "status", Reason: "must be active, completed or cancelled"})
			return
		}
		filter.Status = &status
	}

	var err error
	if filter.StartDate, err = queryDate(q.Get("start_date"), "start_date"); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if filter.EndDate, err = queryDate(q.Get("end_date"), "end_date"); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if filter.Page, err = queryInt(q.Get("page"), "page"); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if filter.PerPage, err = queryInt(q.Get("per_page"), "per_page"); err != nil {
		writeError(w, s.logger, err)
		return
	}

	page, err := s.services.Parking.History(r.Context(), filter)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.services.Dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListRates(w http.ResponseWriter, r *http.Request) {
	rules, err := s.services.Rates.List(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if rules == nil {
		rules = []rate.Rule{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rates": rules})
}

func (s *Server) handleGetRate(w http.ResponseWriter, r *http.Request) {
	rule, err := s.services.Rates.Get(r.Context(), rate.VehicleType(chi.URLParam(r, "vehicleType")))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rateResponse{Rate: rule})
}

func (s *Server) handleUpdateRate(w http.ResponseWriter, r *http.Request) {
	var body rateBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.FirstHourRate == nil {
		writeError(w, s.logger, &fieldError{Field: "first_hour_rate", Reason: "is required"})
		return
	}
	if body.NextHourRate == nil {
		writeError(w, s.logger, &fieldError{Field: "next_hour_rate", Reason: "is required"})
		return
	}

	rule, err := s.services.Rates.Update(r.Context(), rate.UpdateRequest{
		VehicleType:   rate.VehicleType(chi.URLParam(r, "vehicleType")),
		FirstHourRate: *body.FirstHourRate,
		NextHourRate:  *body.NextHourRate,
		DailyMaxRate:  body.DailyMaxRate,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rateResponse{Message: "Rate updated successfully", Rate: rule})
}

func (s *Server) handleDailyReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts report.DailyOptions

	var err error
	if opts.StartDate, err = queryDate(q.Get("start_date"), "start_date"); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if opts.EndDate, err = queryDate(q.Get("end_date"), "end_date"); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if opts.Page, err = queryInt(q.Get("page"), "page"); err != nil {
		writeError(w, s.logger, err)
		return
	}
	if opts.PerPage, err = queryInt(q.Get("per_page"), "per_page"); err != nil {
		writeError(w, s.logger, err)
		return
	}

	page, err := s.services.Reports.Daily(r.Context(), opts)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleRangeReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := queryDate(q.Get("start_date"), "start_date")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	end, err := queryDate(q.Get("end_date"), "end_date")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if start == nil || end == nil {
		writeError(w, s.logger, &fieldError{Field: "start_date", Reason: "start_date and end_date are required"})
		return
	}

	reports, err := s.services.Reports.Range(r.Context(), *start, *end)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	resp := rangeResponse{
		StartDate: start.Format(report.DateLayout),
		EndDate:   end.Format(report.DateLayout),
		Reports:   reports,
	}
	if resp.Reports == nil {
		resp.Reports = []report.DailyAggregate{}
	}
	for _, agg := range reports {
		resp.Totals.Add(agg.Totals)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMonthlyReport returns the months of a year, or one month's totals
// when month is given.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, err := queryInt(q.Get("year"), "year")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if year == 0 {
		year = s.now().Year()
	}

	month, err := queryInt(q.Get("month"), "month")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if month != 0 {
		totals, err := s.services.Reports.Month(r.Context(), year, time.Month(month))
		if err != nil {
			writeError(w, s.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, monthResponse{Year: year, Month: month, Totals: totals})
		return
	}

	months, err := s.services.Reports.Year(r.Context(), year)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if months == nil {
		months = []report.MonthTotals{}
	}
	writeJSON(w, http.StatusOK, monthlyResponse{Year: year, MonthlyReports: months})
}

// queryDate parses an optional YYYY-MM-DD parameter as a UTC calendar date.
func queryDate(raw, field string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(report.DateLayout, raw)
	if err != nil {
		return nil, &fieldError{Field: field, Reason: "must be a YYYY-MM-DD date"}
	}
	return &t, nil
}

func queryInt(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &fieldError{Field: field, Reason: "must be a non-negative integer"}
	}
	return n, nil
}
