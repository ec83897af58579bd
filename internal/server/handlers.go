package server

import (
	"encoding/base64"
	"fmt"
	"io"

	"github.com/Veraticus/spice-gateway/internal/resilience"
	"github.com/gofiber/fiber/v2"
)

type parseRequest struct {
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

type receiptRequest struct {
	ImageBase64 string `json:"image_base64"`
	MIMEType    string `json:"mime_type"`
}

type healthResponse struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Healthy  bool   `json:"healthy"`
}

func (s *Server) parseFinance(c *fiber.Ctx) error {
	var req parseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := s.gw.ParseFinanceText(c.UserContext(), req.Text, req.UserID)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *Server) parseTask(c *fiber.Ctx) error {
	var req parseRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	task, err := s.gw.ParseTaskText(c.UserContext(), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(task)
}

// scanReceipt accepts either a JSON body or a multipart upload in the "image" field.
func (s *Server) scanReceipt(c *fiber.Ctx) error {
	var req receiptRequest

	if file, err := c.FormFile("image"); err == nil {
		src, err := file.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "failed to open image")
		}
		defer func() { _ = src.Close() }()

		raw, err := io.ReadAll(src)
		if err != nil {
			return fmt.Errorf("failed to read upload: %w", err)
		}
		req.ImageBase64 = base64.StdEncoding.EncodeToString(raw)
		req.MIMEType = c.FormValue("mime_type", file.Header.Get(fiber.HeaderContentType))
	} else if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	receipt, err := s.gw.ScanReceipt(c.UserContext(), req.ImageBase64, req.MIMEType)
	if err != nil {
		return err
	}
	return c.JSON(receipt)
}

func (s *Server) health(c *fiber.Ctx) error {
	resp := healthResponse{
		Healthy:  s.gw.HealthCheck(c.UserContext()),
		Provider: s.gw.Provider(),
		Model:    s.gw.ModelName(),
	}
	if !resp.Healthy {
		c.Status(fiber.StatusServiceUnavailable)
	}
	return c.JSON(resp)
}

func (s *Server) stats(c *fiber.Ctx) error {
	stats, err := s.gw.UsageStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

func (s *Server) clearCache(c *fiber.Ctx) error {
	removed, err := s.gw.ClearCache(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (s *Server) resetBreaker(c *fiber.Ctx) error {
	if err := s.gw.ResetCircuitBreaker(c.UserContext()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": resilience.BreakerClosed})
}
