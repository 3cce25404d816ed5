package server

import (
	"errors"
	"log/slog"

	"zeroai/internal/middleware"
	"zeroai/internal/models"
	"zeroai/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// CreatePost handles POST /api/posts
// @Summary Submit an image post
// @Description Classifies the image and publishes it only when it is judged human-made
// @Tags posts
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Image file"
// @Param caption formData string false "Caption"
// @Param authorId formData string true "Author user ID (ignored when a bearer token is sent)"
// @Success 201 {object} service.IngestResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 406 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("No image uploaded"))
		}
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid multipart form"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, models.NewInternalError(err))
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to close upload", slog.String("error", cerr.Error()))
		}
	}()

	res, err := s.ingestionService.Ingest(c.UserContext(), service.IngestInput{
		Image:       file,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Filename:    fileHeader.Filename,
		Caption:     c.FormValue("caption"),
		AuthorID:    actingUserID(c, c.FormValue("authorId")),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// GetTimeline handles GET /api/timeline
// @Summary Timeline
// @Description Every accepted post, newest first
// @Tags posts
// @Produce json
// @Success 200 {array} models.Post
// @Failure 500 {object} models.ErrorResponse
// @Router /timeline [get]
func (s *Server) GetTimeline(c *fiber.Ctx) error {
	posts, err := s.postService.Timeline(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetPost handles GET /api/posts/:id
// @Summary Get post
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} models.Post
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id} [get]
func (s *Server) GetPost(c *fiber.Ctx) error {
	post, err := s.postService.GetPost(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// ToggleLike handles PUT /api/posts/:id/like
// @Summary Like or unlike a post
// @Tags posts
// @Accept json
// @Produce json
// @Param id path string true "Post ID"
// @Param request body object{userId=string} false "Acting user (ignored when a bearer token is sent)"
// @Success 200 {object} object{status=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/like [put]
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	var req struct {
		UserID string `json:"userId" form:"userId"`
	}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	state, err := s.postService.ToggleLike(c.UserContext(), c.Params("id"), actingUserID(c, req.UserID))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"status": state})
}
