package api

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"meeting-service/internal/query"
	"meeting-service/internal/service"
)

type MeetingHandler struct {
	meetingService service.MeetingService
	validate       *validator.Validate
}

func NewMeetingHandler(meetingService service.MeetingService) *MeetingHandler {
	return &MeetingHandler{
		meetingService: meetingService,
		validate:       validator.New(),
	}
}

type MeetingRequest struct {
	Title        string   `json:"title" validate:"required,min=1,max=200"`
	Description  string   `json:"description" validate:"max=2000"`
	Date         string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime    string   `json:"startTime" validate:"required,datetime=15:04"`
	EndTime      string   `json:"endTime" validate:"required,datetime=15:04"`
	Participants []string `json:"participants" validate:"dive,email"`
	Status       string   `json:"status" validate:"omitempty,oneof=scheduled canceled"`
}

func (r *MeetingRequest) toInput() service.MeetingInput {
	return service.MeetingInput{
		Title:        r.Title,
		Description:  r.Description,
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Participants: r.Participants,
		Status:       r.Status,
	}
}

func (h *MeetingHandler) CreateMeeting(c *fiber.Ctx) error {
	caller, err := CallerFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user claims"})
	}

	var request MeetingRequest

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	meeting, err := h.meetingService.CreateMeeting(c.Context(), request.toInput(), caller)

	if err != nil {
		if isValidationErr(err) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		slog.ErrorContext(c.UserContext(), "Error creating meeting", slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not create meeting"})
	}

	return c.Status(fiber.StatusCreated).JSON(meeting)
}

// ListMeetings scopes by the effective role (admins may preview with
// view=user) and applies the q/participant/status/sort controls.
func (h *MeetingHandler) ListMeetings(c *fiber.Ctx) error {
	caller, err := CallerFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user claims"})
	}

	opts := query.Options{
		Search:      c.Query("q"),
		Participant: c.Query("participant"),
		Status:      c.Query("status"),
		Sort:        query.ParseSortKey(c.Query("sort")),
	}

	meetings, err := h.meetingService.ListMeetings(c.Context(), caller, EffectiveRole(c), opts)
	if err != nil {
		slog.ErrorContext(c.UserContext(), "Error listing meetings", slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch meetings"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"data": meetings})
}

func (h *MeetingHandler) GetMeeting(c *fiber.Ctx) error {
	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid meeting ID format"})
	}

	caller, err := CallerFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user claims"})
	}

	meeting, err := h.meetingService.GetMeeting(c.Context(), meetingID, caller)
	if err != nil {
		if errors.Is(err, service.ErrMeetingNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Meeting not found"})
		}
		slog.ErrorContext(c.UserContext(), "Error getting meeting", slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Could not fetch meeting"})
	}

	return c.Status(fiber.StatusOK).JSON(meeting)
}

func (h *MeetingHandler) UpdateMeeting(c *fiber.Ctx) error {
	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid meeting ID format"})
	}

	caller, err := CallerFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user claims"})
	}

	var request MeetingRequest
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := h.validate.Struct(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid input", "details": err.Error()})
	}

	meeting, err := h.meetingService.UpdateMeeting(c.Context(), meetingID, request.toInput(), caller)
	if err != nil {
		return h.mutationError(c, err, "Could not update meeting")
	}

	return c.Status(fiber.StatusOK).JSON(meeting)
}

func (h *MeetingHandler) CancelMeeting(c *fiber.Ctx) error {
	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid meeting ID format"})
	}

	caller, err := CallerFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user claims"})
	}

	if err := h.meetingService.CancelMeeting(c.Context(), meetingID, caller); err != nil {
		return h.mutationError(c, err, "Could not cancel meeting")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Meeting canceled"})
}

func (h *MeetingHandler) DeleteMeeting(c *fiber.Ctx) error {
	meetingID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid meeting ID format"})
	}

	caller, err := CallerFromClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user claims"})
	}

	if err := h.meetingService.DeleteMeeting(c.Context(), meetingID, caller); err != nil {
		return h.mutationError(c, err, "Could not delete meeting")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Meeting deleted"})
}

func (h *MeetingHandler) mutationError(c *fiber.Ctx, err error, fallback string) error {
	switch {
	case errors.Is(err, service.ErrMeetingNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Meeting not found"})
	case errors.Is(err, service.ErrNotAllowed):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case isValidationErr(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		slog.ErrorContext(c.UserContext(), fallback, slog.String("error", err.Error()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
	}
}

func isValidationErr(err error) bool {
	return errors.Is(err, service.ErrEndNotAfterStart) ||
		errors.Is(err, service.ErrBadDate) ||
		errors.Is(err, service.ErrBadTime)
}
