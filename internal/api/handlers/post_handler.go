package handlers

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/service"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

type PostHandler struct {
	s  service.PostService
	rs service.RetryService
}

func NewPostHandler(s service.PostService, rs service.RetryService) *PostHandler {
	return &PostHandler{s: s, rs: rs}
}

func (h *PostHandler) CreatePost(c *fiber.Ctx) error {
	var req transfer.CreatePostRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	post, err := h.s.Create(c.UserContext(), GetOwner(c), &req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.s.List(c.UserContext(), GetOwner(c))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"posts": posts,
	})
}

func (h *PostHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.s.PostInfo(c.UserContext(), GetOwner(c), c.Params("id"))
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) RetryPost(c *fiber.Ctx) error {
	post, err := h.rs.RetryFailed(c.UserContext(), GetOwner(c), c.Params("id"), time.Now())
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(post)
}
