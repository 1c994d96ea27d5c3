package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"lexdesk/internal/app"
	"lexdesk/internal/repository"
	"lexdesk/internal/transport/http/response"
)

// LookupHandler serves the public geo lists and lawyer directory.
type LookupHandler struct {
	lookupService *app.LookupService
	lawyerService *app.LawyerService
}

func NewLookupHandler(lookupService *app.LookupService, lawyerService *app.LawyerService) *LookupHandler {
	return &LookupHandler{lookupService: lookupService, lawyerService: lawyerService}
}

func (h *LookupHandler) Countries(c *gin.Context) {
	countries, err := h.lookupService.ListCountries(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list countries failed")
		return
	}
	response.OK(c, countries)
}

func (h *LookupHandler) States(c *gin.Context) {
	countryID, ok := paramUint(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid country id")
		return
	}
	states, err := h.lookupService.ListStates(c.Request.Context(), countryID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list states failed")
		return
	}
	response.OK(c, states)
}

func (h *LookupHandler) Cities(c *gin.Context) {
	stateID, ok := paramUint(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid state id")
		return
	}
	cities, err := h.lookupService.ListCities(c.Request.Context(), stateID)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list cities failed")
		return
	}
	response.OK(c, cities)
}

func (h *LookupHandler) Lawyers(c *gin.Context) {
	lawyers, err := h.lawyerService.ListVisibleLawyers(repository.LawyerFilter{
		CountryID: queryUint(c, "country_id"),
		StateID:   queryUint(c, "state_id"),
		CityID:    queryUint(c, "city_id"),
		Specialty: c.Query("specialty"),
		Limit:     queryInt(c, "limit", 20),
		Offset:    queryInt(c, "offset", 0),
	})
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list lawyers failed")
		return
	}
	response.OK(c, lawyers)
}
