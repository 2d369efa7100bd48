package rest

import (
	"errors"
	"io"
	"strings"

	"github.com/gofiber/fiber/v2"

	domainVerification "github.com/truthlens/truthlens/domains/verification"
	pkgError "github.com/truthlens/truthlens/pkg/error"
	"github.com/truthlens/truthlens/pkg/media"
	"github.com/truthlens/truthlens/pkg/ratelimit"
	"github.com/truthlens/truthlens/pkg/utils"
)

type Verification struct {
	Service       domainVerification.IVerificationUsecase
	MaxImageBytes int64
}

func InitRestVerification(app fiber.Router, service domainVerification.IVerificationUsecase, maxImageBytes int64) Verification {
	handler := Verification{Service: service, MaxImageBytes: maxImageBytes}

	group := app.Group("/api/verify")
	group.Post("/", handler.Verify)
	group.Post("/media", handler.VerifyMedia)
	group.Get("/status", handler.GetStatus)
	group.Post("/reset", handler.Reset)

	return handler
}

// Verify handles text and URL claims submitted as JSON.
func (h *Verification) Verify(c *fiber.Ctx) error {
	var request domainVerification.VerifyRequest
	if err := c.BodyParser(&request); err != nil {
		return respondError(c, pkgError.ValidationError("invalid request body: "+err.Error()))
	}

	verdict, err := h.Service.Verify(c.UserContext(), request)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Verification completed",
		Results: verdict,
	})
}

// VerifyMedia handles image claims submitted as multipart form data with
// an optional caption.
func (h *Verification) VerifyMedia(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return respondError(c, pkgError.ValidationError("image file is required"))
	}
	if h.MaxImageBytes > 0 && fileHeader.Size > h.MaxImageBytes {
		return respondError(c, pkgError.ValidationError("image exceeds the maximum allowed size"))
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if !media.IsSupportedImage(mimeType) {
		return respondError(c, pkgError.ValidationError("unsupported image type: "+mimeType))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, pkgError.InternalServerError("failed to read uploaded image"))
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return respondError(c, pkgError.InternalServerError("failed to read uploaded image"))
	}

	claim := strings.TrimSpace(c.FormValue("claim"))
	if claim == "" {
		claim = "What does this image show, and is it presented in a misleading way?"
	}

	request := domainVerification.VerifyRequest{
		Claim:   claim,
		Kind:    domainVerification.ClaimMedia,
		Context: c.FormValue("context"),
		Media: &domainVerification.Media{
			Data:     data,
			MimeType: mimeType,
			FileName: fileHeader.Filename,
		},
	}

	verdict, err := h.Service.Verify(c.UserContext(), request)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Verification completed",
		Results: verdict,
	})
}

func (h *Verification) GetStatus(c *fiber.Ctx) error {
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Verification status retrieved",
		Results: fiber.Map{"status": h.Service.Status()},
	})
}

func (h *Verification) Reset(c *fiber.Ctx) error {
	h.Service.Reset()
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Verification state reset",
		Results: fiber.Map{"status": h.Service.Status()},
	})
}

// respondError maps application errors onto the response envelope,
// keeping the rate-limit wait hint visible to the UI.
func respondError(c *fiber.Ctx, err error) error {
	var rateErr *ratelimit.RateLimitError
	if errors.As(err, &rateErr) {
		return c.Status(rateErr.StatusCode()).JSON(utils.ResponseData{
			Status:  rateErr.StatusCode(),
			Code:    rateErr.ErrCode(),
			Message: rateErr.Error(),
			Results: fiber.Map{"wait_ms": rateErr.Wait.Milliseconds()},
		})
	}

	if genericErr, ok := err.(pkgError.GenericError); ok {
		return c.Status(genericErr.StatusCode()).JSON(utils.ResponseData{
			Status:  genericErr.StatusCode(),
			Code:    genericErr.ErrCode(),
			Message: genericErr.Error(),
		})
	}

	return c.Status(500).JSON(utils.ResponseData{
		Status:  500,
		Code:    "INTERNAL_SERVER_ERROR",
		Message: err.Error(),
	})
}
