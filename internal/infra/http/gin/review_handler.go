package ginserver

import (
	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	reviewsapp "reservations/internal/app/handlers/reviews"
	"reservations/internal/app/queries"
)

type ReviewsHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Respond  Responder
}

type submitReviewRequest struct {
	BookingID string `json:"bookingId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (h ReviewsHandler) Submit(c *gin.Context) {
	user, ok := requireUser(c, h.Respond)
	if !ok {
		return
	}
	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Respond.BadRequest(c, "Invalid request body", err)
		return
	}
	cmd := reviewsapp.SubmitReviewCommand{
		BookingID: req.BookingID,
		AuthorID:  user.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	review, err := commands.Dispatch[reviewsapp.SubmitReviewCommand, *dto.Review](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.Created(c, review)
}

func (h ReviewsHandler) Delete(c *gin.Context) {
	user, ok := requireUser(c, h.Respond)
	if !ok {
		return
	}
	cmd := reviewsapp.DeleteReviewCommand{BookingID: c.Param("bookingId"), AuthorID: user.ID}
	result, err := commands.Dispatch[reviewsapp.DeleteReviewCommand, dto.ReviewDeleted](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.OK(c, result)
}

func (h ReviewsHandler) ListByListing(c *gin.Context) {
	query := reviewsapp.ListListingReviewsQuery{
		ListingID: c.Param("id"),
		Page:      parseInt(c.Query("page")),
		Limit:     parseInt(c.Query("limit")),
	}
	result, err := queries.Ask[reviewsapp.ListListingReviewsQuery, dto.ReviewPage](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.OK(c, result)
}
