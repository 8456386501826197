package ginserver

import (
	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/dto"
	availabilityapp "reservations/internal/app/handlers/availability"
	"reservations/internal/app/queries"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Respond Responder
}

// Booked lists occupied ranges of a listing; from and to are optional.
func (h AvailabilityHandler) Booked(c *gin.Context) {
	query := availabilityapp.BookedRangesQuery{ListingID: c.Param("id")}
	if raw := c.Query("from"); raw != "" {
		from, ok := parseFlexibleTime(raw)
		if !ok {
			h.Respond.BadRequest(c, "from must be a valid date", nil)
			return
		}
		query.From = from
	}
	if raw := c.Query("to"); raw != "" {
		to, ok := parseFlexibleTime(raw)
		if !ok {
			h.Respond.BadRequest(c, "to must be a valid date", nil)
			return
		}
		query.To = to
	}
	result, err := queries.Ask[availabilityapp.BookedRangesQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.OK(c, result)
}
