package handler

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"circapi/internal/model"
	"circapi/internal/repository"
	"circapi/internal/service"
)

var validate = validator.New()

// Services bundles the circulation services consumed by the HTTP layer.
type Services struct {
	Availability  service.AvailabilityService
	Loans         service.LoanService
	Reservations  service.ReservationService
	Consultations service.ConsultationService
	Eligibility   service.EligibilityService
	Penalties     service.PenaltyService
}

type borrowBody struct {
	UserID       string     `json:"user_id" validate:"required"`
	DocumentID   string     `json:"document_id" validate:"required"`
	DocumentKind string     `json:"document_kind" validate:"required"`
	DueDate      *time.Time `json:"due_date,omitempty"`
}

type reserveBody struct {
	UserID       string `json:"user_id" validate:"required"`
	DocumentID   string `json:"document_id" validate:"required"`
	DocumentKind string `json:"document_kind" validate:"required"`
}

type consultBody struct {
	UserID       string `json:"user_id" validate:"required"`
	DocumentID   string `json:"document_id" validate:"required"`
	DocumentKind string `json:"document_kind" validate:"required"`
	Location     string `json:"location" validate:"required"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers parse and validate input, delegate to services, and translate
// errors; no business logic lives here.
func RegisterRoutes(app *fiber.App, db *sql.DB, svcs Services) {
	// Health endpoint: checks DB connectivity only
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Availability snapshot, computed live
	app.Get("/documents/:kind/:id/availability", func(c *fiber.Ctx) error {
		kind, err := model.ParseKind(c.Params("kind"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", "unknown document kind")
		}
		av, err := svcs.Availability.Check(c.UserContext(), c.Params("id"), kind)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(av)
	})

	// Active reservation queue, ordered by priority
	app.Get("/documents/:kind/:id/queue", func(c *fiber.Ctx) error {
		kind, err := model.ParseKind(c.Params("kind"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", "unknown document kind")
		}
		queue, err := svcs.Reservations.Queue(c.UserContext(), c.Params("id"), kind)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"queue": queue, "length": len(queue)})
	})

	// Borrow
	app.Post("/loans", func(c *fiber.Ctx) error {
		var body borrowBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := validate.Struct(body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}
		kind, err := model.ParseKind(body.DocumentKind)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", "unknown document kind")
		}

		loan, err := svcs.Loans.Borrow(c.UserContext(), service.BorrowRequest{
			UserID:       body.UserID,
			DocumentID:   body.DocumentID,
			DocumentKind: kind,
			DueDate:      body.DueDate,
		})
		if err != nil {
			if err == service.ErrInvalidDueDate {
				return writeError(c, fiber.StatusBadRequest, "INVALID_DUE_DATE", err.Error())
			}
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(loan)
	})

	// Return
	app.Post("/loans/:id/return", func(c *fiber.Ctx) error {
		res, err := svcs.Loans.Return(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	})

	// Loan history for a user
	app.Get("/loans", func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_ID_REQUIRED", "user_id query parameter is required")
		}
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		page, err := svcs.Loans.ListByUser(c.UserContext(), userID, repository.PageQuery{Limit: limit, Offset: offset})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(page)
	})

	// Reserve
	app.Post("/reservations", func(c *fiber.Ctx) error {
		var body reserveBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := validate.Struct(body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}
		kind, err := model.ParseKind(body.DocumentKind)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", "unknown document kind")
		}

		res, err := svcs.Reservations.Reserve(c.UserContext(), body.UserID, body.DocumentID, kind)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(res)
	})

	app.Post("/reservations/:id/fulfill", func(c *fiber.Ctx) error {
		res, err := svcs.Reservations.Fulfill(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	})

	app.Post("/reservations/:id/cancel", func(c *fiber.Ctx) error {
		res, err := svcs.Reservations.Cancel(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	})

	// Start a reading-room consultation
	app.Post("/consultations", func(c *fiber.Ctx) error {
		var body consultBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "malformed request body")
		}
		if err := validate.Struct(body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}
		kind, err := model.ParseKind(body.DocumentKind)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", "unknown document kind")
		}

		cons, err := svcs.Consultations.Start(c.UserContext(), body.UserID, body.DocumentID, kind, body.Location)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(cons)
	})

	app.Post("/consultations/:id/complete", func(c *fiber.Ctx) error {
		cons, err := svcs.Consultations.Complete(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(cons)
	})

	app.Post("/consultations/:id/cancel", func(c *fiber.Ctx) error {
		cons, err := svcs.Consultations.Cancel(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(cons)
	})

	// Advisory eligibility check; never mutates
	app.Get("/eligibility", func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		documentID := c.Query("document_id")
		if userID == "" || documentID == "" {
			return writeError(c, fiber.StatusBadRequest, "PARAMS_REQUIRED", "user_id and document_id are required")
		}
		kind, err := model.ParseKind(c.Query("kind"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_KIND", "unknown document kind")
		}

		var res *service.EligibilityResult
		switch action := c.Query("action", "borrow"); action {
		case "borrow":
			res, err = svcs.Eligibility.CanBorrow(c.UserContext(), userID, documentID, kind)
		case "reserve":
			res, err = svcs.Eligibility.CanReserve(c.UserContext(), userID, documentID, kind)
		default:
			return writeError(c, fiber.StatusBadRequest, "INVALID_ACTION", "action must be borrow or reserve")
		}
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	})

	// Penalty ledger
	app.Get("/penalties", func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return writeError(c, fiber.StatusBadRequest, "USER_ID_REQUIRED", "user_id query parameter is required")
		}
		out, err := svcs.Penalties.ListByUser(c.UserContext(), userID)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(fiber.Map{"penalties": out, "total": len(out)})
	})

	app.Post("/penalties/:id/pay", func(c *fiber.Ctx) error {
		p, err := svcs.Penalties.Pay(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(p)
	})
}
