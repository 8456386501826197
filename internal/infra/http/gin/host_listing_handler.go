package ginserver

import (
	"fmt"

	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	listingapp "reservations/internal/app/handlers/listings"
	"reservations/internal/app/queries"
)

// HostListingHandler serves a host's own listings. Ownership is checked by
// the commands; the route only requires an authenticated user.
type HostListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Respond  Responder
}

type createListingRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	City          string `json:"city"`
	Country       string `json:"country"`
	PricePerNight int64  `json:"pricePerNight"`
	Currency      string `json:"currency"`
	MaxGuests     int    `json:"maxGuests"`
}

type updateListingRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	City          *string `json:"city"`
	Country       *string `json:"country"`
	PricePerNight *int64  `json:"pricePerNight"`
	MaxGuests     *int    `json:"maxGuests"`
}

type setActiveRequest struct {
	Reason string `json:"reason"`
}

func (h HostListingHandler) List(c *gin.Context) {
	host, ok := requireUser(c, h.Respond)
	if !ok {
		return
	}
	query := listingapp.HostListingsQuery{
		HostID: host.ID,
		Page:   parseInt(c.Query("page")),
		Limit:  parseInt(c.Query("limit")),
	}
	result, err := queries.Ask[listingapp.HostListingsQuery, dto.ListingPage](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.OK(c, result)
}

func (h HostListingHandler) Create(c *gin.Context) {
	host, ok := requireUser(c, h.Respond)
	if !ok {
		return
	}
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Respond.BadRequest(c, "Invalid request body", err)
		return
	}
	maxGuests := req.MaxGuests
	if maxGuests == 0 {
		maxGuests = 1
	}
	cmd := listingapp.CreateHostListingCommand{
		HostID:        host.ID,
		Title:         req.Title,
		Description:   req.Description,
		City:          req.City,
		Country:       req.Country,
		PricePerNight: req.PricePerNight,
		Currency:      req.Currency,
		MaxGuests:     maxGuests,
	}
	result, err := commands.Dispatch[listingapp.CreateHostListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	c.Header("Location", fmt.Sprintf("/api/v1/listings/%s", result.ID))
	h.Respond.Created(c, result)
}

func (h HostListingHandler) Update(c *gin.Context) {
	host, ok := requireUser(c, h.Respond)
	if !ok {
		return
	}
	var req updateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Respond.BadRequest(c, "Invalid request body", err)
		return
	}
	cmd := listingapp.UpdateHostListingCommand{
		HostID:        host.ID,
		ListingID:     c.Param("id"),
		Title:         req.Title,
		Description:   req.Description,
		City:          req.City,
		Country:       req.Country,
		PricePerNight: req.PricePerNight,
		MaxGuests:     req.MaxGuests,
	}
	result, err := commands.Dispatch[listingapp.UpdateHostListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.OK(c, result)
}

func (h HostListingHandler) Activate(c *gin.Context)   { h.setActive(c, true) }
func (h HostListingHandler) Deactivate(c *gin.Context) { h.setActive(c, false) }

func (h HostListingHandler) setActive(c *gin.Context, active bool) {
	host, ok := requireUser(c, h.Respond)
	if !ok {
		return
	}
	var req setActiveRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Respond.BadRequest(c, "Invalid request body", err)
			return
		}
	}
	cmd := listingapp.SetHostListingActiveCommand{
		HostID:    host.ID,
		ListingID: c.Param("id"),
		Active:    active,
		Reason:    req.Reason,
	}
	result, err := commands.Dispatch[listingapp.SetHostListingActiveCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.OK(c, result)
}
