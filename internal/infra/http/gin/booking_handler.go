package ginserver

import (
	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	bookingapp "reservations/internal/app/handlers/booking"
	meapp "reservations/internal/app/handlers/me"
	"reservations/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Respond  Responder
}

type createBookingRequest struct {
	ListingID   string `json:"listingId"`
	CheckIn     string `json:"checkIn"`
	CheckOut    string `json:"checkOut"`
	GuestsCount *int   `json:"guestsCount"`
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

func (h BookingHandler) Create(c *gin.Context) {
	user, ok := requireUser(c, h.Respond)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Respond.BadRequest(c, "Invalid request body", err)
		return
	}
	checkIn, okIn := parseFlexibleTime(req.CheckIn)
	checkOut, okOut := parseFlexibleTime(req.CheckOut)
	if !okIn || !okOut {
		h.Respond.BadRequest(c, "Invalid date range", nil)
		return
	}
	guests := 1
	if req.GuestsCount != nil {
		guests = *req.GuestsCount
	}
	cmd := bookingapp.CreateReservationCommand{
		ListingID:       req.ListingID,
		GuestID:         user.ID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          guests,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.CreateReservationCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.Created(c, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	user, ok := requireUser(c, h.Respond)
	if !ok {
		return
	}
	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Respond.BadRequest(c, "Invalid request body", err)
			return
		}
	}
	cmd := bookingapp.CancelReservationCommand{
		BookingID: c.Param("id"),
		GuestID:   user.ID,
		Reason:    req.Reason,
	}
	result, err := commands.Dispatch[bookingapp.CancelReservationCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.OK(c, result)
}

func (h BookingHandler) ListMine(c *gin.Context) {
	user, ok := requireUser(c, h.Respond)
	if !ok {
		return
	}
	query := meapp.ListReservationsQuery{
		GuestID: user.ID,
		Page:    parseInt(c.Query("page")),
		Limit:   parseInt(c.Query("limit")),
	}
	result, err := queries.Ask[meapp.ListReservationsQuery, dto.GuestReservationPage](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.OK(c, result)
}
