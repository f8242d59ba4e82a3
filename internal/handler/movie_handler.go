package handler

import (
	"net/http"
	"strconv"
	"strings"

	"cinema/internal/middleware"
	"cinema/internal/permission"
	"cinema/internal/service"
	"cinema/pkg/pagination"
	"cinema/pkg/response"

	"github.com/gin-gonic/gin"
)

type MovieHandler struct {
	movieService   service.MovieService
	bookingService service.BookingService
	auditService   service.AuditService
}

func NewMovieHandler(movieService service.MovieService, bookingService service.BookingService, auditService service.AuditService) *MovieHandler {
	return &MovieHandler{
		movieService:   movieService,
		bookingService: bookingService,
		auditService:   auditService,
	}
}

func (h *MovieHandler) RegisterRoutes(router *gin.RouterGroup, authn gin.HandlerFunc, perms *permission.Enforcer) {
	readMovies := middleware.RequirePermission(perms, permission.ObjMovies, permission.ActRead)
	writeMovies := middleware.RequirePermission(perms, permission.ObjMovies, permission.ActWrite)
	readTickets := middleware.RequirePermission(perms, permission.ObjTickets, permission.ActRead)
	writeTickets := middleware.RequirePermission(perms, permission.ObjTickets, permission.ActWrite)

	movies := router.Group("/movies", authn)
	{
		movies.POST("", writeMovies, h.CreateMovies)
		movies.GET("", readMovies, h.ListMovies)
		movies.GET("/movieHistory", readTickets, h.MovieHistory)
		movies.GET("/:id", readMovies, h.GetMovie)
		movies.PATCH("/:id", writeMovies, h.UpdateMovie)
		movies.DELETE("/:ids", writeMovies, h.DeleteMovies)
		movies.POST("/buyTickets", writeTickets, h.BuyTickets)
		movies.POST("/watchMovie", writeTickets, h.WatchMovie)
	}

	sessions := router.Group("/sessions", authn)
	{
		sessions.GET("/:id/availability", middleware.RequirePermission(perms, permission.ObjSessions, permission.ActRead), h.GetAvailability)
	}
}

// CreateMovies handles POST /movies
// @Summary      Create movies
// @Description  Creates movies with their sessions; every session gets one ticket per seat
// @Tags         movies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateMoviesRequest  true  "Movies Payload"
// @Success      201      {object}  response.Response{data=[]service.MovieResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /movies [post]
func (h *MovieHandler) CreateMovies(c *gin.Context) {
	var req service.CreateMoviesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	actor, _ := middleware.CurrentActor(c)
	movies, err := h.movieService.CreateMovies(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.auditService, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, movies))
}

// ListMovies handles GET /movies
// @Summary      List movies
// @Description  Lists movies with their sessions and ticket counts
// @Tags         movies
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Number of items (default 20)"
// @Param        offset  query     int  false  "Number of items to skip"
// @Success      200     {object}  response.Response{data=pagination.Page[service.MovieResponse]}
// @Failure      403     {object}  response.Response
// @Router       /movies [get]
func (h *MovieHandler) ListMovies(c *gin.Context) {
	p := pagination.Parse(c)

	actor, _ := middleware.CurrentActor(c)
	movies, total, err := h.movieService.ListMovies(c.Request.Context(), actor, p.Limit, p.Offset)
	if err != nil {
		writeError(c, h.auditService, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(movies, total, p)))
}

// GetMovie handles GET /movies/:id
// @Summary      Get movie
// @Tags         movies
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Movie ID"
// @Success      200  {object}  response.Response{data=service.MovieResponse}
// @Failure      404  {object}  response.Response
// @Router       /movies/{id} [get]
func (h *MovieHandler) GetMovie(c *gin.Context) {
	id, ok := parseID(c, c.Param("id"))
	if !ok {
		return
	}

	actor, _ := middleware.CurrentActor(c)
	movie, err := h.movieService.GetMovie(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, h.auditService, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, movie))
}

// UpdateMovie handles PATCH /movies/:id
// @Summary      Update movie
// @Description  Updates movie fields and the listed sessions' room, date, slot and price
// @Tags         movies
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      int                         true  "Movie ID"
// @Param        payload  body      service.UpdateMovieRequest  true  "Movie Payload"
// @Success      200      {object}  response.Response{data=service.MovieResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /movies/{id} [patch]
func (h *MovieHandler) UpdateMovie(c *gin.Context) {
	id, ok := parseID(c, c.Param("id"))
	if !ok {
		return
	}

	var req service.UpdateMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	actor, _ := middleware.CurrentActor(c)
	movie, err := h.movieService.UpdateMovie(c.Request.Context(), actor, id, req)
	if err != nil {
		writeError(c, h.auditService, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, movie))
}

// DeleteMovies handles DELETE /movies/:ids
// @Summary      Delete movies
// @Description  Deletes every listed movie with its sessions and tickets, or none of them
// @Tags         movies
// @Produce      json
// @Security     BearerAuth
// @Param        ids  path      string  true  "Comma separated movie IDs"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /movies/{ids} [delete]
func (h *MovieHandler) DeleteMovies(c *gin.Context) {
	var ids []uint
	for _, part := range strings.Split(c.Param("ids"), ",") {
		id, ok := parseID(c, strings.TrimSpace(part))
		if !ok {
			return
		}
		ids = append(ids, id)
	}

	actor, _ := middleware.CurrentActor(c)
	if err := h.movieService.DeleteMovies(c.Request.Context(), actor, ids); err != nil {
		writeError(c, h.auditService, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Movies deleted successfully"}))
}

// BuyTickets handles POST /movies/buyTickets
// @Summary      Buy tickets
// @Description  Allocates the requested number of tickets of one session to the caller, all or nothing
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.BuyTicketsRequest  true  "Purchase Payload"
// @Success      200      {object}  response.Response{data=service.BuyTicketsResponse}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /movies/buyTickets [post]
func (h *MovieHandler) BuyTickets(c *gin.Context) {
	var req service.BuyTicketsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	actor, _ := middleware.CurrentActor(c)
	res, err := h.bookingService.BuyTickets(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.auditService, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// WatchMovie handles POST /movies/watchMovie
// @Summary      Watch movie
// @Description  Redeems one of the caller's unused tickets
// @Tags         bookings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.WatchMovieRequest  true  "Ticket Payload"
// @Success      200      {object}  response.Response{data=bool}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /movies/watchMovie [post]
func (h *MovieHandler) WatchMovie(c *gin.Context) {
	var req service.WatchMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	actor, _ := middleware.CurrentActor(c)
	watched, err := h.bookingService.WatchMovie(c.Request.Context(), actor, req)
	if err != nil {
		writeError(c, h.auditService, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, watched))
}

// MovieHistory handles GET /movies/movieHistory
// @Summary      Watched movies
// @Description  Lists the movies the caller has redeemed tickets for
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Number of items (default 20)"
// @Param        offset  query     int  false  "Number of items to skip"
// @Success      200     {object}  response.Response{data=service.WatchedMoviesResponse}
// @Router       /movies/movieHistory [get]
func (h *MovieHandler) MovieHistory(c *gin.Context) {
	p := pagination.Parse(c)

	actor, _ := middleware.CurrentActor(c)
	res, err := h.bookingService.ListWatched(c.Request.Context(), actor, p.Limit, p.Offset)
	if err != nil {
		writeError(c, h.auditService, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// GetAvailability handles GET /sessions/:id/availability
// @Summary      Session availability
// @Description  Counts sold and available tickets of a session
// @Tags         bookings
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Session ID"
// @Success      200  {object}  response.Response{data=service.AvailabilityResponse}
// @Failure      404  {object}  response.Response
// @Router       /sessions/{id}/availability [get]
func (h *MovieHandler) GetAvailability(c *gin.Context) {
	id, ok := parseID(c, c.Param("id"))
	if !ok {
		return
	}

	actor, _ := middleware.CurrentActor(c)
	res, err := h.bookingService.GetAvailability(c.Request.Context(), actor, id)
	if err != nil {
		writeError(c, h.auditService, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// parseID writes a 400 and returns false when raw is not a positive id
func parseID(c *gin.Context, raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid ID format: "+raw)
		return 0, false
	}
	return uint(id), true
}
