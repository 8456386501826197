package ginserver

import (
	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/dto"
	listingapp "reservations/internal/app/handlers/listings"
	"reservations/internal/app/queries"
)

// ListingHandler wires public listing queries to HTTP.
type ListingHandler struct {
	Queries queries.Bus
	Respond Responder
}

// Catalog responds with a filtered page of active listings.
func (h ListingHandler) Catalog(c *gin.Context) {
	query := listingapp.SearchCatalogQuery{
		City:      c.Query("city"),
		Country:   c.Query("country"),
		MinGuests: parseInt(c.Query("guests")),
		PriceMin:  parseInt64(c.Query("minPrice")),
		PriceMax:  parseInt64(c.Query("maxPrice")),
		Sort:      c.Query("sort"),
		Page:      parseInt(c.Query("page")),
		Limit:     parseInt(c.Query("limit")),
	}
	result, err := queries.Ask[listingapp.SearchCatalogQuery, dto.ListingPage](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.OK(c, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	query := listingapp.GetListingQuery{ListingID: c.Param("id")}
	result, err := queries.Ask[listingapp.GetListingQuery, *dto.Listing](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.Respond.Error(c, err)
		return
	}
	h.Respond.OK(c, result)
}
