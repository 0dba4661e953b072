// Package analytics builds per-show sales reports for staff.
package analytics

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"ms-booking/internal/logger"
	"ms-booking/internal/models"
	"ms-booking/internal/store"
)

type Service struct {
	Store  *store.Store
	Logger *logger.Logger
}

func NewService(st *store.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{Store: st, Logger: log}
}

// ShowSales aggregates the bookings of a show. Gross, discount and net only
// count bookings that still hold their seats; cancelled and expired bookings
// show up in the status breakdown alone.
type ShowSales struct {
	ShowID         int64                        `json:"show_id"`
	TotalSeats     int                          `json:"total_seats"`
	AvailableSeats int                          `json:"available_seats"`
	SeatsSold      int                          `json:"seats_sold"`
	Occupancy      decimal.Decimal              `json:"occupancy_percent"`
	GrossRevenue   decimal.Decimal              `json:"gross_revenue"`
	TotalDiscounts decimal.Decimal              `json:"total_discounts"`
	NetRevenue     decimal.Decimal              `json:"net_revenue"`
	ByStatus       map[models.BookingStatus]int `json:"bookings_by_status"`
	DailySales     []DailySales                 `json:"daily_sales"`
	CouponUsage    []CouponUsage                `json:"coupon_usage"`
}

type DailySales struct {
	Date       string          `json:"date"`
	Bookings   int             `json:"bookings"`
	Seats      int             `json:"seats"`
	NetRevenue decimal.Decimal `json:"net_revenue"`
}

type CouponUsage struct {
	Code          string          `json:"code"`
	Uses          int             `json:"uses"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
}

// GetShowSales reports on one show. status, when set, narrows the booking set
// before anything is summed.
func (s *Service) GetShowSales(ctx context.Context, showID int64, status models.BookingStatus) (*ShowSales, error) {
	repo := s.Store.Repo()
	show, err := repo.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}

	db := NewDB(repo.DB())
	bookings, err := db.BookingsByShow(ctx, showID, status)
	if err != nil {
		return nil, fmt.Errorf("load bookings for show %d: %w", showID, err)
	}
	usages, err := db.CouponUsagesByShow(ctx, showID)
	if err != nil {
		return nil, fmt.Errorf("load coupon usage for show %d: %w", showID, err)
	}

	report := &ShowSales{
		ShowID:         show.ID,
		TotalSeats:     show.TotalSeats,
		AvailableSeats: show.AvailableSeats,
		ByStatus:       make(map[models.BookingStatus]int),
		DailySales:     []DailySales{},
		CouponUsage:    []CouponUsage{},
	}

	counted := make(map[int64]bool)
	daily := make(map[string]*DailySales)
	for _, b := range bookings {
		report.ByStatus[b.BookingStatus]++
		if !b.BookingStatus.Holding() {
			continue
		}
		counted[b.ID] = true
		report.SeatsSold += b.TotalSeats
		report.GrossRevenue = report.GrossRevenue.Add(b.TotalAmount)
		report.TotalDiscounts = report.TotalDiscounts.Add(b.DiscountAmount).Add(b.TierDiscount)

		day := b.CreatedAt.UTC().Format("2006-01-02")
		d, ok := daily[day]
		if !ok {
			d = &DailySales{Date: day}
			daily[day] = d
		}
		d.Bookings++
		d.Seats += b.TotalSeats
		d.NetRevenue = d.NetRevenue.Add(b.NetAmount())
	}
	report.NetRevenue = report.GrossRevenue.Sub(report.TotalDiscounts)
	if show.TotalSeats > 0 {
		report.Occupancy = decimal.NewFromInt(int64(report.SeatsSold)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(show.TotalSeats))).
			Round(2)
	}

	for _, d := range daily {
		report.DailySales = append(report.DailySales, *d)
	}
	sort.Slice(report.DailySales, func(i, j int) bool {
		return report.DailySales[i].Date < report.DailySales[j].Date
	})

	byCode := make(map[string]*CouponUsage)
	for _, u := range usages {
		if !counted[u.BookingID] {
			continue
		}
		c, ok := byCode[u.Code]
		if !ok {
			c = &CouponUsage{Code: u.Code}
			byCode[u.Code] = c
		}
		c.Uses++
		c.TotalDiscount = c.TotalDiscount.Add(u.DiscountAmount)
	}
	for _, c := range byCode {
		report.CouponUsage = append(report.CouponUsage, *c)
	}
	sort.Slice(report.CouponUsage, func(i, j int) bool {
		return report.CouponUsage[i].Code < report.CouponUsage[j].Code
	})

	s.Logger.Debug("ANALYTICS", fmt.Sprintf("Sales report for show %d: %d bookings, %d seats sold", showID, len(bookings), report.SeatsSold))
	return report, nil
}
